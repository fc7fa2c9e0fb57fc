// Package adapter 是核心流程与 OCR/渲染/组装实现之间的窄接口。
package adapter

import (
	"context"
	"errors"
	"image"

	"github.com/John-Robertt/searchpdf/internal/infra/imgx"
	"github.com/John-Robertt/searchpdf/internal/ocr"
	"github.com/John-Robertt/searchpdf/internal/render"
)

// Converter 负责“图片 -> 单页可搜索 PDF”和“PDF -> 每页图片”。
type Converter interface {
	ImageToSearchablePDF(ctx context.Context, img image.Image) ([]byte, error)
	PDFToImages(ctx context.Context, path string) ([]image.Image, error)
}

// Assembler 把多个页面 PDF 按顺序拼成一个文档。
type Assembler interface {
	Assemble(ctx context.Context, pages [][]byte) ([]byte, error)
}

// Pipeline 是生产环境的 Converter：先规整图片，再交给识别引擎；PDF 交给渲染器。
type Pipeline struct {
	Engine   ocr.Engine
	Renderer render.Renderer

	// MaxImageSide 限制送入引擎的图片最长边（<=0 不限制）。
	MaxImageSide int
}

func (p Pipeline) ImageToSearchablePDF(ctx context.Context, img image.Image) ([]byte, error) {
	if p.Engine == nil {
		return nil, errors.New("未配置 OCR 引擎")
	}
	if img == nil {
		return nil, errors.New("图片为空")
	}
	return p.Engine.RecognizePage(ctx, imgx.Normalize(img, p.MaxImageSide))
}

func (p Pipeline) PDFToImages(ctx context.Context, path string) ([]image.Image, error) {
	if p.Renderer == nil {
		return nil, errors.New("未配置渲染器")
	}
	return p.Renderer.Render(ctx, path)
}
