// Package mupdf 用进程内的 MuPDF（go-fitz）栅格化 PDF。
package mupdf

import (
	"context"
	"errors"
	"image"

	"github.com/gen2brain/go-fitz"

	"github.com/John-Robertt/searchpdf/internal/render"
)

const Name = "mupdf"

type Renderer struct {
	DPI int
}

func New(dpi int) *Renderer {
	if dpi <= 0 {
		dpi = 300
	}
	return &Renderer{DPI: dpi}
}

func (r *Renderer) Name() string { return Name }

// Render 逐页渲染；每页之间检查 ctx，单页渲染本身无法中断。
func (r *Renderer) Render(ctx context.Context, path string) ([]image.Image, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, &render.Error{Renderer: Name, Path: path, Err: err}
	}
	defer doc.Close()

	n := doc.NumPage()
	if n <= 0 {
		return nil, &render.Error{Renderer: Name, Path: path, Err: errors.New("PDF 没有页面")}
	}
	out := make([]image.Image, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := doc.ImageDPI(i, float64(r.DPI))
		if err != nil {
			return nil, &render.Error{Renderer: Name, Path: path, Err: err}
		}
		out = append(out, img)
	}
	return out, nil
}
