// Package tesscli 通过 tesseract 可执行文件实现 ocr.Engine（不需要 cgo）。
package tesscli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os/exec"
	"strconv"
	"strings"

	"github.com/John-Robertt/searchpdf/internal/infra/imgx"
	"github.com/John-Robertt/searchpdf/internal/ocr"
)

const Name = "tesseract"

// 测试可替换，用于模拟未安装 tesseract。
var (
	lookPath       = exec.LookPath
	commandContext = exec.CommandContext
)

// Engine 把 PNG 写入 tesseract 的 stdin，从 stdout 读取 hOCR。
type Engine struct {
	Path string
	opts ocr.Options
}

func New(path string, opts ocr.Options) *Engine {
	if strings.TrimSpace(path) == "" {
		path = "tesseract"
	}
	return &Engine{Path: path, opts: opts}
}

func (e *Engine) Name() string { return Name }

// RecognizePage 的子进程受 ctx 控制（item_timeout 可以中断它）。
func (e *Engine) RecognizePage(ctx context.Context, img image.Image) ([]byte, error) {
	bin, err := lookPath(e.Path)
	if err != nil {
		return nil, &ocr.Error{Engine: Name, Err: fmt.Errorf("未找到 tesseract（%s）：%w", e.Path, err)}
	}
	data, err := imgx.EncodePNG(img)
	if err != nil {
		return nil, err
	}

	cmd := commandContext(ctx, bin, e.args()...)
	cmd.Stdin = bytes.NewReader(data)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &ocr.Error{Engine: Name, Err: ctxErr}
		}
		return nil, &ocr.Error{Engine: Name, Err: withStderr(err, stderr.String())}
	}
	if stdout.Len() == 0 {
		return nil, &ocr.Error{Engine: Name, Err: errors.New("tesseract 没有输出")}
	}
	return ocr.PageFromHOCR(img, stdout.Bytes(), e.opts.DPI)
}

func (e *Engine) args() []string {
	args := []string{"stdin", "stdout"}
	if len(e.opts.Languages) > 0 {
		args = append(args, "-l", strings.Join(e.opts.Languages, "+"))
	}
	if e.opts.DPI > 0 {
		args = append(args, "--dpi", strconv.Itoa(e.opts.DPI))
	}
	return append(args, "hocr")
}

func withStderr(err error, stderr string) error {
	msg := strings.TrimSpace(stderr)
	if msg == "" {
		return err
	}
	if i := strings.LastIndexByte(msg, '\n'); i >= 0 {
		msg = strings.TrimSpace(msg[i+1:])
	}
	return fmt.Errorf("%w：%s", err, msg)
}
