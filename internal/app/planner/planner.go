package planner

import (
	"fmt"

	"github.com/John-Robertt/searchpdf/internal/domain"
	"github.com/John-Robertt/searchpdf/internal/naming"
)

// Strategy 选择完成度判定规则。
type Strategy string

const (
	// StrategyCount：只比较数量（默认，兼容既有行为）。
	StrategyCount Strategy = "count"
	// StrategyNames：逐个核对每个条目的目标文件名是否存在。
	StrategyNames Strategy = "names"
)

// ParseStrategy 校验配置中的 completeness 取值；空串视为默认 count。
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyCount:
		return StrategyCount, nil
	case StrategyNames:
		return StrategyNames, nil
	default:
		return "", fmt.Errorf("completeness 只能是 count 或 names，实际是 %q", s)
	}
}

// IsComplete 判定目录是否“无事可做”：searchable 数量 == 图片数 + 非 searchable PDF 数。
//
// 已知局限：只核对数量，不核对名字对应关系。删除某个源文件的同时新增一个未转换条目，
// 总数不变时会被误判为完成。需要逐名核对时使用 StrategyNames。
func IsComplete(set domain.FileSet) bool {
	return len(set.Searchable) == len(set.Images)+len(set.NonSearchable)
}

// IsCompleteByNames 判定每个条目的目标名是否都已存在（空目录同样视为完成）。
func IsCompleteByNames(set domain.FileSet) bool {
	have := make(map[string]struct{}, len(set.Searchable))
	for _, n := range set.Searchable {
		have[n] = struct{}{}
	}
	for _, n := range set.Images {
		if _, ok := have[naming.SearchableName(n)]; !ok {
			return false
		}
	}
	for _, n := range set.NonSearchable {
		if _, ok := have[naming.SearchableName(n)]; !ok {
			return false
		}
	}
	return true
}

// Oracle 返回 strategy 对应的判定函数；未知取值退化为 count。
func Oracle(strategy Strategy) func(domain.FileSet) bool {
	if strategy == StrategyNames {
		return IsCompleteByNames
	}
	return IsComplete
}

// PlanDir 基于快照生成确定性的条目计划（不做任何写入）。
//
// 顺序：先图片后 PDF，各自保持列目录顺序。
// 目标名已在快照中 => done；同一轮中目标名已被更早的条目占用 => collision。
func PlanDir(dir string, set domain.FileSet) []domain.ItemPlan {
	have := make(map[string]struct{}, len(set.Searchable))
	for _, n := range set.Searchable {
		have[n] = struct{}{}
	}
	claimed := make(map[string]struct{}, set.Items())

	plans := make([]domain.ItemPlan, 0, set.Items())
	add := func(kind domain.ItemKind, src string) {
		p := domain.ItemPlan{
			Dir:    dir,
			Kind:   kind,
			Source: src,
			Target: naming.SearchableName(src),
			State:  domain.PlanPending,
		}
		if _, ok := claimed[p.Target]; ok {
			p.State = domain.PlanCollision
		} else if _, ok := have[p.Target]; ok {
			p.State = domain.PlanDone
		}
		claimed[p.Target] = struct{}{}
		plans = append(plans, p)
	}

	for _, n := range set.Images {
		add(domain.KindImage, n)
	}
	for _, n := range set.NonSearchable {
		add(domain.KindPDF, n)
	}
	return plans
}
