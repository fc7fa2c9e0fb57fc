package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusConverted = "converted"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

const (
	ErrCodeDirUnreadable  = "dir_unreadable"
	ErrCodeOpenFailed     = "open_failed"
	ErrCodeRenderFailed   = "render_failed"
	ErrCodeOCRFailed      = "ocr_failed"
	ErrCodeAssembleFailed = "assemble_failed"
	ErrCodeWriteFailed    = "write_failed"
	ErrCodeTargetConflict = "target_conflict"
	ErrCodeUnexpected     = "unexpected"
)

// PassReport 是一轮完整树遍历的结果（stdout JSON / report_file 的结构）。
type PassReport struct {
	Root string `json:"root"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Aborted 表示本轮被非预期错误中断（其余字段只反映中断前的进度）。
	Aborted  bool   `json:"aborted"`
	AbortMsg string `json:"abort_msg,omitempty"`

	Summary PassSummary  `json:"summary"`
	Dirs    []DirResult  `json:"dirs"`
	Items   []ItemResult `json:"items"`
}

type PassSummary struct {
	Dirs       int `json:"dirs"`
	Complete   int `json:"complete"`
	Unreadable int `json:"unreadable"`

	Converted int `json:"converted"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// DirResult 记录一个目录节点在本轮中的判定。
type DirResult struct {
	Dir       string `json:"dir"`
	Images    int    `json:"images"`
	PDFs      int    `json:"pdfs"`
	Complete  bool   `json:"complete"`
	ErrorCode string `json:"error_code,omitempty"`
	ErrorMsg  string `json:"error_msg,omitempty"`
}

type ItemResult struct {
	Dir    string   `json:"dir"`
	Kind   ItemKind `json:"kind"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Pages  int      `json:"pages,omitempty"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code,omitempty"`
	ErrorMsg  string `json:"error_msg,omitempty"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC
// 2) dirs/items 稳定排序：按 dir、source 字典序
// 3) summary 由 dirs/items 计算得出
func (r *PassReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Dirs, func(i, j int) bool { return r.Dirs[i].Dir < r.Dirs[j].Dir })
	sort.SliceStable(r.Items, func(i, j int) bool {
		a, b := r.Items[i], r.Items[j]
		if a.Dir != b.Dir {
			return a.Dir < b.Dir
		}
		return a.Source < b.Source
	})

	var s PassSummary
	for _, d := range r.Dirs {
		s.Dirs++
		if d.Complete {
			s.Complete++
		}
		if d.ErrorCode == ErrCodeDirUnreadable {
			s.Unreadable++
		}
	}
	for _, it := range r.Items {
		switch it.Status {
		case StatusConverted:
			s.Converted++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	r.Summary = s
}

// MarshalJSON 保证 nil slice 输出为 []，而不是 null。
func (r PassReport) MarshalJSON() ([]byte, error) {
	type Alias PassReport
	a := Alias(r)
	if a.Dirs == nil {
		a.Dirs = []DirResult{}
	}
	if a.Items == nil {
		a.Items = []ItemResult{}
	}
	return json.Marshal(a)
}
