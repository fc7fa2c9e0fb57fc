package run

import (
	"time"

	"github.com/John-Robertt/searchpdf/internal/domain"
)

// Observer 用于把“轮次/目录/条目事件”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - 事件都来自同一个 goroutine，实现不需要加锁。
type Observer interface {
	// OnPassStart 在一轮开始时调用。
	OnPassStart(root string)
	// OnDirError 在目录不可读时调用（该目录本轮视为空）。
	OnDirError(dir string, err error)
	// OnTempRemoved 在清理掉残留的临时文件后调用。
	OnTempRemoved(path string)
	// OnItemDone 在每个条目处理完成时调用（包括 skipped）。
	OnItemDone(res domain.ItemResult, dur time.Duration)
	// OnPassDone 在一轮结束时调用（report 已 Finalize）。
	OnPassDone(rep domain.PassReport, dur time.Duration)
}

// nopObserver 让核心流程不必到处判断 nil。
type nopObserver struct{}

func (nopObserver) OnPassStart(string)                          {}
func (nopObserver) OnDirError(string, error)                    {}
func (nopObserver) OnTempRemoved(string)                        {}
func (nopObserver) OnItemDone(domain.ItemResult, time.Duration) {}
func (nopObserver) OnPassDone(domain.PassReport, time.Duration) {}
