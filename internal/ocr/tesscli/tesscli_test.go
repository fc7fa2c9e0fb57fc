package tesscli

import (
	"context"
	"errors"
	"image"
	"os/exec"
	"reflect"
	"strings"
	"testing"

	"github.com/John-Robertt/searchpdf/internal/infra/pdfx"
	"github.com/John-Robertt/searchpdf/internal/ocr"
)

func TestEngine_Args(t *testing.T) {
	e := New("", ocr.Options{Languages: []string{"eng", "deu"}, DPI: 300})
	if e.Path != "tesseract" {
		t.Fatalf("默认路径不符合预期：%q", e.Path)
	}
	want := []string{"stdin", "stdout", "-l", "eng+deu", "--dpi", "300", "hocr"}
	if got := e.args(); !reflect.DeepEqual(got, want) {
		t.Fatalf("参数不符合预期：got=%v want=%v", got, want)
	}
	if got := New("x", ocr.Options{}).args(); !reflect.DeepEqual(got, []string{"stdin", "stdout", "hocr"}) {
		t.Fatalf("无选项时参数不符合预期：%v", got)
	}
}

func TestEngine_MissingBinary(t *testing.T) {
	old := lookPath
	lookPath = func(string) (string, error) { return "", exec.ErrNotFound }
	defer func() { lookPath = old }()

	_, err := New("", ocr.Options{}).RecognizePage(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)))
	var oe *ocr.Error
	if !errors.As(err, &oe) || oe.Engine != Name {
		t.Fatalf("期望 *ocr.Error，实际 %T %v", err, err)
	}
	if !errors.Is(err, exec.ErrNotFound) {
		t.Fatalf("期望可以 Unwrap 到 exec.ErrNotFound：%v", err)
	}
}

func TestWithStderr(t *testing.T) {
	base := errors.New("exit status 1")
	err := withStderr(base, "Warning: x\nError opening data file\n")
	if !errors.Is(err, base) {
		t.Fatalf("应保留原始错误")
	}
	if !strings.Contains(err.Error(), "Error opening data file") {
		t.Fatalf("应包含 stderr 最后一行：%v", err)
	}
	if withStderr(base, "  ") != base {
		t.Fatalf("stderr 为空时应原样返回")
	}
}

func TestEngine_RealBinary(t *testing.T) {
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract 未安装")
	}
	b, err := New("", ocr.Options{Languages: []string{"eng"}, DPI: 300}).RecognizePage(context.Background(), image.NewRGBA(image.Rect(0, 0, 200, 80)))
	if err != nil {
		t.Fatalf("RecognizePage 失败：%v", err)
	}
	if err := pdfx.Verify(b, 1); err != nil {
		t.Fatalf("Verify 失败：%v", err)
	}
}
