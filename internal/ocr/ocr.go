// Package ocr 定义“图片 -> 单页可搜索 PDF”的识别引擎边界。
package ocr

import (
	"context"
	"fmt"
	"image"

	"github.com/John-Robertt/searchpdf/internal/hocr"
	"github.com/John-Robertt/searchpdf/internal/infra/pdfx"
)

// Engine 把“识别实现的差异”限制在 ocr 子包内部；核心流程只依赖统一接口。
//
// 约束：
// - RecognizePage 返回恰好一页的 PDF（原图 + 文字层）
// - 不做缓存、不做重试（远程引擎的网络重试由 httpx 统一实现）
// - ctx 取消时尽快返回；进程内引擎可能无法中断，只在开始前检查
type Engine interface {
	Name() string
	RecognizePage(ctx context.Context, img image.Image) ([]byte, error)
}

// Options 是所有引擎共享的识别参数。
type Options struct {
	Languages []string
	DPI       int
}

// Error 是识别阶段的可追溯错误。
type Error struct {
	Engine string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return "ocr error"
	}
	return fmt.Sprintf("OCR 失败（%s）：%v", e.Engine, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// PageFromHOCR 用 hOCR 结果为 img 生成单页 PDF。
func PageFromHOCR(img image.Image, hocrDoc []byte, dpi int) ([]byte, error) {
	page, err := hocr.Parse(hocrDoc)
	if err != nil {
		return nil, err
	}
	lines := page.Lines
	// hOCR 的坐标系来自引擎看到的图片；尺寸不一致时按比例映射回 img。
	if b := img.Bounds(); page.Box.Dx() > 0 && page.Box.Dy() > 0 &&
		(page.Box.Dx() != b.Dx() || page.Box.Dy() != b.Dy()) {
		lines = rescale(lines, page.Box, b)
	}
	return pdfx.WritePage(img, lines, dpi)
}

func rescale(lines []hocr.Line, from, to image.Rectangle) []hocr.Line {
	sx := float64(to.Dx()) / float64(from.Dx())
	sy := float64(to.Dy()) / float64(from.Dy())
	r := func(b image.Rectangle) image.Rectangle {
		return image.Rect(
			to.Min.X+int(float64(b.Min.X-from.Min.X)*sx),
			to.Min.Y+int(float64(b.Min.Y-from.Min.Y)*sy),
			to.Min.X+int(float64(b.Max.X-from.Min.X)*sx),
			to.Min.Y+int(float64(b.Max.Y-from.Min.Y)*sy),
		)
	}
	out := make([]hocr.Line, 0, len(lines))
	for _, l := range lines {
		nl := hocr.Line{Box: r(l.Box), Baseline: int(float64(l.Baseline) * sy), Words: make([]hocr.Word, 0, len(l.Words))}
		for _, w := range l.Words {
			nl.Words = append(nl.Words, hocr.Word{Text: w.Text, Box: r(w.Box), Conf: w.Conf})
		}
		out = append(out, nl)
	}
	return out
}
