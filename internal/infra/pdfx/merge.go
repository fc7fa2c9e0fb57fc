package pdfx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageCountError 表示组装结果的页数与输入不一致。
type PageCountError struct {
	Want int
	Got  int
}

func (e *PageCountError) Error() string {
	return fmt.Sprintf("页数不一致：期望 %d，实际 %d", e.Want, e.Got)
}

// Merger 把多个单页（或多页）PDF 按顺序合并为一个文档。
type Merger struct{}

// Assemble 合并 pages，并在返回前校验总页数。
//
// 约束：
// - pages 为空是错误（没有可写的内容）
// - 只有一个输入时原样返回（仍然校验）
// - 输出页序 = 输入顺序
func (Merger) Assemble(ctx context.Context, pages [][]byte) ([]byte, error) {
	if len(pages) == 0 {
		return nil, errors.New("没有可合并的页面")
	}
	want := 0
	for i, p := range pages {
		n, err := PageCount(p)
		if err != nil {
			return nil, fmt.Errorf("第 %d 个输入无效：%w", i+1, err)
		}
		want += n
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := pages[0]
	if len(pages) > 1 {
		rsc := make([]io.ReadSeeker, 0, len(pages))
		for _, p := range pages {
			rsc = append(rsc, bytes.NewReader(p))
		}
		var buf bytes.Buffer
		if err := api.MergeRaw(rsc, &buf, false, mergeConfig()); err != nil {
			return nil, err
		}
		out = buf.Bytes()
	}

	if err := Verify(out, want); err != nil {
		return nil, err
	}
	return out, nil
}

// PageCount 读取 PDF 页数。
func PageCount(b []byte) (n int, err error) {
	if len(b) == 0 {
		return 0, errors.New("PDF 为空")
	}
	// 解析器遇到损坏文件可能 panic，这里统一收敛为错误。
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("PDF 解析失败：%v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return 0, err
	}
	return r.NumPage(), nil
}

// Verify 校验 b 是可解析的 PDF 且恰好有 want 页。
func Verify(b []byte, want int) error {
	got, err := PageCount(b)
	if err != nil {
		return err
	}
	if got != want {
		return &PageCountError{Want: want, Got: got}
	}
	return nil
}

var configOnce sync.Once

func mergeConfig() *model.Configuration {
	configOnce.Do(func() {
		// 不读写用户目录下的 pdfcpu 配置文件。
		model.ConfigPath = "disable"
	})
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	// 输出保持经典 xref 表，便于其它阅读器（以及校验）解析。
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false
	return conf
}
