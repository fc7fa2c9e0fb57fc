// Package tess 用进程内的 tesseract（gosseract，cgo）实现 ocr.Engine。
package tess

import (
	"context"
	"fmt"
	"image"
	"strconv"

	"github.com/otiai10/gosseract/v2"

	"github.com/John-Robertt/searchpdf/internal/infra/imgx"
	"github.com/John-Robertt/searchpdf/internal/ocr"
)

const Name = "gosseract"

// Engine 每页新建一个 client：tesseract 的 client 不是并发安全的，且按页释放内存更可控。
type Engine struct {
	opts          ocr.Options
	clientFactory func() *gosseract.Client
}

func New(opts ocr.Options) *Engine {
	return &Engine{opts: opts, clientFactory: gosseract.NewClient}
}

func (e *Engine) Name() string { return Name }

// RecognizePage 识别 img 并生成单页 PDF。cgo 调用无法中断，只在开始前检查 ctx。
func (e *Engine) RecognizePage(ctx context.Context, img image.Image) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := imgx.EncodePNG(img)
	if err != nil {
		return nil, err
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(data); err != nil {
		return nil, &ocr.Error{Engine: Name, Err: fmt.Errorf("set image: %w", err)}
	}
	if len(e.opts.Languages) > 0 {
		if err := c.SetLanguage(e.opts.Languages...); err != nil {
			return nil, &ocr.Error{Engine: Name, Err: fmt.Errorf("set languages: %w", err)}
		}
	}
	if e.opts.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(e.opts.DPI)); err != nil {
			return nil, &ocr.Error{Engine: Name, Err: fmt.Errorf("set dpi: %w", err)}
		}
	}
	h, err := c.HOCRText()
	if err != nil {
		return nil, &ocr.Error{Engine: Name, Err: err}
	}
	return ocr.PageFromHOCR(img, []byte(h), e.opts.DPI)
}
