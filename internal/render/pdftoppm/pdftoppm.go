// Package pdftoppm 通过 poppler 的 pdftoppm 可执行文件栅格化 PDF（不需要 cgo）。
package pdftoppm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/John-Robertt/searchpdf/internal/infra/imgx"
	"github.com/John-Robertt/searchpdf/internal/render"
)

const Name = "pdftoppm"

// 测试可替换。
var (
	lookPath       = exec.LookPath
	commandContext = exec.CommandContext
)

type Renderer struct {
	Path string
	DPI  int
}

func New(path string, dpi int) *Renderer {
	if strings.TrimSpace(path) == "" {
		path = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 300
	}
	return &Renderer{Path: path, DPI: dpi}
}

func (r *Renderer) Name() string { return Name }

// Render 把页面输出到临时目录（<prefix>-<n>.png），按页号排序后解码。
func (r *Renderer) Render(ctx context.Context, path string) ([]image.Image, error) {
	bin, err := lookPath(r.Path)
	if err != nil {
		return nil, &render.Error{Renderer: Name, Path: path, Err: fmt.Errorf("未找到 pdftoppm（%s）：%w", r.Path, err)}
	}
	tmp, err := os.MkdirTemp("", "searchpdf-pages-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)

	prefix := filepath.Join(tmp, "page")
	cmd := commandContext(ctx, bin, "-r", strconv.Itoa(r.DPI), "-png", path, prefix)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			err = fmt.Errorf("%w：%s", err, msg)
		}
		return nil, &render.Error{Renderer: Name, Path: path, Err: err}
	}

	files, err := pageFiles(tmp, "page")
	if err != nil {
		return nil, &render.Error{Renderer: Name, Path: path, Err: err}
	}
	if len(files) == 0 {
		return nil, &render.Error{Renderer: Name, Path: path, Err: errors.New("PDF 没有页面")}
	}
	out := make([]image.Image, 0, len(files))
	for _, f := range files {
		img, err := imgx.Open(f)
		if err != nil {
			return nil, &render.Error{Renderer: Name, Path: path, Err: err}
		}
		out = append(out, img)
	}
	return out, nil
}

// pageFiles 返回 <prefix>-<n>.png，按 n 的数值排序（pdftoppm 的补零宽度随页数变化）。
func pageFiles(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	type page struct {
		n    int
		path string
	}
	pages := make([]page, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix+"-") || !strings.HasSuffix(name, ".png") {
			continue
		}
		num := strings.TrimSuffix(strings.TrimPrefix(name, prefix+"-"), ".png")
		n, err := strconv.Atoi(num)
		if err != nil {
			continue
		}
		pages = append(pages, page{n: n, path: filepath.Join(dir, name)})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].n < pages[j].n })
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		out = append(out, p.path)
	}
	return out, nil
}
