package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/John-Robertt/searchpdf/internal/app/run"
	"github.com/John-Robertt/searchpdf/internal/domain"
)

var _ run.Observer = (*logObserver)(nil)

// logObserver 把 run 的事件写成结构化日志。
//
// 轮询间隔很短，没有任何变化的一轮只记 Debug，避免刷屏。
type logObserver struct {
	log *slog.Logger
}

func newLogObserver(l *slog.Logger) *logObserver {
	if l == nil {
		l = slog.Default()
	}
	return &logObserver{log: l}
}

func (o *logObserver) OnPassStart(root string) {
	o.log.Debug("开始一轮", "root", root)
}

func (o *logObserver) OnDirError(dir string, err error) {
	o.log.Warn("目录不可读，本轮跳过", "dir", dir, "error", err)
}

func (o *logObserver) OnTempRemoved(path string) {
	o.log.Info("已清理残留临时文件", "path", path)
}

func (o *logObserver) OnItemDone(res domain.ItemResult, dur time.Duration) {
	attrs := []any{
		"dir", res.Dir,
		"source", res.Source,
		"target", res.Target,
		"elapsed", formatShortDuration(dur),
	}
	switch res.Status {
	case domain.StatusConverted:
		o.log.Info("已转换", append(attrs, "pages", res.Pages)...)
	case domain.StatusSkipped:
		o.log.Info("已跳过", attrs...)
	default:
		o.log.Error("转换失败", append(attrs,
			"code", res.ErrorCode,
			"error", truncate(res.ErrorMsg, 300),
		)...)
	}
}

func (o *logObserver) OnPassDone(rep domain.PassReport, dur time.Duration) {
	s := rep.Summary
	level := slog.LevelDebug
	if len(rep.Items) > 0 || s.Unreadable > 0 {
		level = slog.LevelInfo
	}
	o.log.Log(context.Background(), level, "本轮完成",
		"dirs", s.Dirs,
		"complete", s.Complete,
		"unreadable", s.Unreadable,
		"converted", s.Converted,
		"skipped", s.Skipped,
		"failed", s.Failed,
		"elapsed", formatShortDuration(dur),
	)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return d.Round(100 * time.Millisecond).String()
}
