package run

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/John-Robertt/searchpdf/internal/adapter"
	"github.com/John-Robertt/searchpdf/internal/app/planner"
	"github.com/John-Robertt/searchpdf/internal/config"
	"github.com/John-Robertt/searchpdf/internal/domain"
	"github.com/John-Robertt/searchpdf/internal/infra/fsx"
	"github.com/John-Robertt/searchpdf/internal/infra/imgx"
	"github.com/John-Robertt/searchpdf/internal/scan"
)

// StaleTempAge 之前的临时文件被视为崩溃残留。
const StaleTempAge = time.Hour

// Orchestrator 负责一轮遍历：目录判定、条目转换、原子写入与结果汇总。
type Orchestrator struct {
	root        string
	excludeDirs []string
	oracle      func(domain.FileSet) bool
	itemTimeout time.Duration

	conv adapter.Converter
	asm  adapter.Assembler
	obs  Observer

	now      func() time.Time
	staleAge time.Duration
}

// New 用有效配置与适配器构造 Orchestrator。obs 可以为 nil。
func New(eff config.EffectiveConfig, conv adapter.Converter, asm adapter.Assembler, obs Observer) (*Orchestrator, error) {
	if conv == nil || asm == nil {
		return nil, errors.New("converter/assembler 不能为空")
	}
	strategy, err := planner.ParseStrategy(eff.Completeness)
	if err != nil {
		return nil, err
	}
	if obs == nil {
		obs = nopObserver{}
	}
	return &Orchestrator{
		root:        eff.Root,
		excludeDirs: eff.ExcludeDirs,
		oracle:      planner.Oracle(strategy),
		itemTimeout: eff.ItemTimeout,
		conv:        conv,
		asm:         asm,
		obs:         obs,
		now:         time.Now,
		staleAge:    StaleTempAge,
	}, nil
}

// Execute 执行一轮完整的树遍历，并返回 Finalize 后的 PassReport。
//
// 约束：
// - 目录不可读只影响该目录（记录 dir_unreadable，视为空）
// - 单个条目失败不影响其它条目
// - ctx 取消后不再开始新的条目；正在处理的条目会完成
func (o *Orchestrator) Execute(ctx context.Context) domain.PassReport {
	started := o.now()
	o.obs.OnPassStart(o.root)

	rep := domain.PassReport{
		Root:      o.root,
		StartedAt: started,
		Dirs:      make([]domain.DirResult, 0, 16),
		Items:     make([]domain.ItemResult, 0, 16),
	}

	dirs, walkErrs := scan.WalkDirs(o.root, o.excludeDirs)
	for _, e := range walkErrs {
		o.obs.OnDirError(e.Path, e)
		rep.Dirs = append(rep.Dirs, domain.DirResult{
			Dir:       o.rel(e.Path),
			ErrorCode: domain.ErrCodeDirUnreadable,
			ErrorMsg:  e.Error(),
		})
	}

	for _, dir := range dirs {
		if ctx.Err() != nil {
			break
		}
		dr, items := o.visitDir(ctx, dir)
		rep.Dirs = append(rep.Dirs, dr)
		rep.Items = append(rep.Items, items...)
	}

	rep.FinishedAt = o.now()
	rep.Finalize()
	o.obs.OnPassDone(rep, rep.FinishedAt.Sub(started))
	return rep
}

func (o *Orchestrator) visitDir(ctx context.Context, dir string) (domain.DirResult, []domain.ItemResult) {
	dr := domain.DirResult{Dir: o.rel(dir)}

	names, err := scan.ListFiles(dir)
	if err != nil {
		o.obs.OnDirError(dir, err)
		dr.ErrorCode = domain.ErrCodeDirUnreadable
		dr.ErrorMsg = err.Error()
		return dr, nil
	}

	set := scan.Classify(names)
	o.removeStale(dir, set.Stale)

	dr.Images = len(set.Images)
	dr.PDFs = len(set.PDFs)
	dr.Complete = o.oracle(set)
	if dr.Complete {
		return dr, nil
	}

	return dr, o.ConvertDir(ctx, dir, set)
}

// ConvertDir 处理一个判定为未完成的目录（set 为本次访问时的快照）。
func (o *Orchestrator) ConvertDir(ctx context.Context, dir string, set domain.FileSet) []domain.ItemResult {
	plans := planner.PlanDir(dir, set)
	out := make([]domain.ItemResult, 0, len(plans))
	for _, p := range plans {
		if ctx.Err() != nil {
			break
		}
		started := time.Now()
		res := o.convertPlan(ctx, p)
		o.obs.OnItemDone(res, time.Since(started))
		out = append(out, res)
	}
	return out
}

func (o *Orchestrator) convertPlan(ctx context.Context, p domain.ItemPlan) domain.ItemResult {
	res := domain.ItemResult{
		Dir:    o.rel(p.Dir),
		Kind:   p.Kind,
		Source: p.Source,
		Target: p.Target,
	}

	switch p.State {
	case domain.PlanDone:
		res.Status = domain.StatusSkipped
		return res
	case domain.PlanCollision:
		res.Status = domain.StatusFailed
		res.ErrorCode = domain.ErrCodeTargetConflict
		res.ErrorMsg = fmt.Sprintf("目标 %s 已被同目录的其它文件占用", p.Target)
		return res
	}

	// 停止信号不打断正在处理的条目；item_timeout 仍然生效。
	itemCtx := context.WithoutCancel(ctx)
	if o.itemTimeout > 0 {
		var cancel context.CancelFunc
		itemCtx, cancel = context.WithTimeout(itemCtx, o.itemTimeout)
		defer cancel()
	}

	pages, err := o.ConvertItem(itemCtx, p)
	res.Pages = pages
	switch {
	case err == nil:
		res.Status = domain.StatusConverted
	case errors.Is(err, os.ErrExist):
		// 快照之后目标被外部写入：不覆盖，视为已完成。
		res.Status = domain.StatusSkipped
	default:
		res.Status = domain.StatusFailed
		res.ErrorCode = Code(err)
		res.ErrorMsg = err.Error()
	}
	return res
}

// ConvertItem 转换一个待处理条目并原子写入目标文件，返回写入的页数。
// 失败时返回 *ItemConversionError，目录里不会留下目标文件。
func (o *Orchestrator) ConvertItem(ctx context.Context, p domain.ItemPlan) (int, error) {
	src := filepath.Join(p.Dir, p.Source)
	fail := func(stage Stage, err error) (int, error) {
		return 0, &ItemConversionError{Dir: p.Dir, Item: p.Source, Stage: stage, Err: err}
	}

	var imgs []image.Image
	switch p.Kind {
	case domain.KindImage:
		img, err := imgx.Open(src)
		if err != nil {
			return fail(StageOpen, err)
		}
		imgs = []image.Image{img}
	case domain.KindPDF:
		pages, err := o.conv.PDFToImages(ctx, src)
		if err != nil {
			return fail(StageRender, err)
		}
		if len(pages) == 0 {
			return fail(StageRender, errors.New("PDF 没有页面"))
		}
		imgs = pages
	default:
		return fail(StageOpen, fmt.Errorf("未知条目类型：%q", p.Kind))
	}

	pdfs := make([][]byte, 0, len(imgs))
	for i, img := range imgs {
		b, err := o.conv.ImageToSearchablePDF(ctx, img)
		if err != nil {
			if len(imgs) > 1 {
				err = fmt.Errorf("第 %d/%d 页：%w", i+1, len(imgs), err)
			}
			return fail(StageOCR, err)
		}
		pdfs = append(pdfs, b)
	}

	doc, err := o.asm.Assemble(ctx, pdfs)
	if err != nil {
		return fail(StageAssemble, err)
	}

	if err := fsx.WriteFileAtomicNoOverwrite(p.Dir, p.Target, doc); err != nil {
		return fail(StageWrite, err)
	}
	return len(imgs), nil
}

func (o *Orchestrator) removeStale(dir string, names []string) {
	now := o.now()
	for _, name := range names {
		path := filepath.Join(dir, name)
		removed, err := fsx.RemoveIfStale(path, o.staleAge, now)
		if err != nil {
			// 清理失败不影响本轮；下一轮再试。
			continue
		}
		if removed {
			o.obs.OnTempRemoved(path)
		}
	}
}

func (o *Orchestrator) rel(dir string) string {
	r, err := filepath.Rel(o.root, dir)
	if err != nil {
		return dir
	}
	return filepath.ToSlash(r)
}
