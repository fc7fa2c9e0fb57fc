// Package render 把 PDF 的每一页栅格化为图片。
package render

import (
	"context"
	"fmt"
	"image"
	"sort"
	"strings"
)

// Renderer 按页序返回 PDF 每一页的图片。
//
// 约束：
// - 返回的图片数 = PDF 页数，顺序与原文档一致
// - 0 页的 PDF 是错误（没有可转换的内容）
type Renderer interface {
	Name() string
	Render(ctx context.Context, path string) ([]image.Image, error)
}

// Error 是渲染阶段的可追溯错误。
type Error struct {
	Renderer string
	Path     string
	Err      error
}

func (e *Error) Error() string {
	if e == nil {
		return "render error"
	}
	return fmt.Sprintf("渲染失败（%s）：%q：%v", e.Renderer, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Registry 是渲染器的只读注册表（按 name 索引）。
type Registry struct {
	byName map[string]Renderer
}

func NewRegistry(renderers ...Renderer) (Registry, error) {
	byName := make(map[string]Renderer, len(renderers))
	for _, r := range renderers {
		if r == nil {
			return Registry{}, fmt.Errorf("renderer 不能为空")
		}
		name := strings.ToLower(strings.TrimSpace(r.Name()))
		if name == "" {
			return Registry{}, fmt.Errorf("renderer.Name 不能为空")
		}
		if _, ok := byName[name]; ok {
			return Registry{}, fmt.Errorf("重复的 renderer：%q", name)
		}
		byName[name] = r
	}
	return Registry{byName: byName}, nil
}

func (r Registry) Get(name string) (Renderer, bool) {
	if r.byName == nil {
		return nil, false
	}
	v, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return v, ok
}

func (r Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
