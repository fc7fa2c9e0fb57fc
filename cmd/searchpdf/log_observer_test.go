package main

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/John-Robertt/searchpdf/internal/domain"
)

func newBufferLogger(level slog.Level) (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level})), &buf
}

func TestLogObserver_ItemEvents(t *testing.T) {
	l, buf := newBufferLogger(slog.LevelInfo)
	o := newLogObserver(l)

	o.OnItemDone(domain.ItemResult{
		Dir: ".", Kind: domain.KindImage, Source: "a.png", Target: "a_searchable.pdf",
		Pages: 1, Status: domain.StatusConverted,
	}, 1500*time.Millisecond)
	o.OnItemDone(domain.ItemResult{
		Dir: "sub", Kind: domain.KindPDF, Source: "b.pdf", Target: "b_searchable.pdf",
		Status: domain.StatusFailed, ErrorCode: domain.ErrCodeOCRFailed, ErrorMsg: "boom",
	}, time.Second)

	out := buf.String()
	for _, want := range []string{
		"level=INFO", "msg=已转换", "source=a.png", "pages=1", "elapsed=1.5s",
		"level=ERROR", "msg=转换失败", "code=ocr_failed", "error=boom", "dir=sub",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("日志缺少 %q：\n%s", want, out)
		}
	}
}

func TestLogObserver_QuietPassIsDebug(t *testing.T) {
	l, buf := newBufferLogger(slog.LevelInfo)
	o := newLogObserver(l)

	o.OnPassStart("/data")
	o.OnPassDone(domain.PassReport{Summary: domain.PassSummary{Dirs: 3, Complete: 3}}, time.Millisecond)
	if buf.Len() != 0 {
		t.Fatalf("无变化的一轮不应输出 Info 日志：%q", buf.String())
	}

	o.OnPassDone(domain.PassReport{
		Items:   []domain.ItemResult{{Source: "a.png", Status: domain.StatusConverted}},
		Summary: domain.PassSummary{Dirs: 1, Converted: 1},
	}, time.Second)
	if !strings.Contains(buf.String(), "msg=本轮完成") || !strings.Contains(buf.String(), "converted=1") {
		t.Fatalf("有条目的一轮应输出摘要：%q", buf.String())
	}
}

func TestLogObserver_DirErrorAndTemp(t *testing.T) {
	l, buf := newBufferLogger(slog.LevelInfo)
	o := newLogObserver(l)

	o.OnDirError("/data/locked", errors.New("permission denied"))
	o.OnTempRemoved("/data/.a_searchable.pdf.tmp-1")

	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "dir=/data/locked") {
		t.Fatalf("缺少目录错误日志：%q", out)
	}
	if !strings.Contains(out, "path=/data/.a_searchable.pdf.tmp-1") {
		t.Fatalf("缺少临时文件清理日志：%q", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("  abc  ", 10); got != "abc" {
		t.Fatalf("truncate 应去除首尾空白，实际 %q", got)
	}
	if got := truncate("转换失败转换失败", 6); got != "转换失..." {
		t.Fatalf("truncate 应按字符截断，实际 %q", got)
	}
}
