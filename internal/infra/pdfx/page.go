package pdfx

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/John-Robertt/searchpdf/internal/hocr"
	"github.com/John-Robertt/searchpdf/internal/infra/imgx"
)

// Helvetica 的平均字宽（1/1000 em）。文字层不可见，只需要让选择框大致落在单词上。
const avgGlyphWidth = 500

// WritePage 生成一页“图片 + 不可见文字层”的 PDF。
//
// 约束：
// - 页面尺寸 = 像素 * 72 / dpi（dpi<=0 时按 72 处理，即 1px = 1pt）
// - lines 的坐标基于 img 的像素坐标系（左上角为原点）
// - 文字用渲染模式 3（不可见），保留可搜索、可复制
// - 无法用 WinAnsi 表示的字符替换为 '?'
func WritePage(img image.Image, lines []hocr.Line, dpi int) ([]byte, error) {
	if img == nil {
		return nil, errors.New("图片为空")
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("图片尺寸无效：%dx%d", b.Dx(), b.Dy())
	}
	if dpi <= 0 {
		dpi = 72
	}
	jpg, err := imgx.EncodeJPEG(img)
	if err != nil {
		return nil, err
	}

	scale := 72 / float64(dpi)
	pw := float64(b.Dx()) * scale
	ph := float64(b.Dy()) * scale

	content, err := deflate(pageContent(b, lines, pw, ph, scale))
	if err != nil {
		return nil, err
	}

	w := &objWriter{}
	w.header()
	w.obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	w.obj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	w.obj(3, fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %s %s] "+
		"/Resources << /XObject << /Im0 4 0 R >> /Font << /F1 5 0 R >> >> /Contents 6 0 R >>",
		num(pw), num(ph)))
	w.stream(4, fmt.Sprintf("<< /Type /XObject /Subtype /Image /Width %d /Height %d "+
		"/ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode /Length %d >>",
		b.Dx(), b.Dy(), len(jpg)), jpg)
	w.obj(5, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	w.stream(6, fmt.Sprintf("<< /Length %d /Filter /FlateDecode >>", len(content)), content)
	w.trailer(1)
	return w.buf.Bytes(), nil
}

func pageContent(b image.Rectangle, lines []hocr.Line, pw, ph, scale float64) []byte {
	var c bytes.Buffer
	fmt.Fprintf(&c, "q\n%s 0 0 %s 0 0 cm\n/Im0 Do\nQ\n", num(pw), num(ph))

	words := 0
	for _, l := range lines {
		words += len(l.Words)
	}
	if words == 0 {
		return c.Bytes()
	}

	c.WriteString("BT\n3 Tr\n")
	for _, l := range lines {
		fs := float64(l.Box.Dy()) * scale
		if fs <= 0 {
			continue
		}
		// 基线 = 行框底边 + baseline 偏移（像素，向上为负）。
		baseY := ph - float64(l.Box.Max.Y-b.Min.Y+l.Baseline)*scale
		for _, wd := range l.Words {
			text := encodeWinAnsi(wd.Text)
			if len(text) == 0 {
				continue
			}
			x := float64(wd.Box.Min.X-b.Min.X) * scale
			ww := float64(wd.Box.Dx()) * scale
			natural := float64(len(text)) * avgGlyphWidth / 1000 * fs
			tz := 100.0
			if natural > 0 {
				tz = 100 * ww / natural
			}
			fmt.Fprintf(&c, "/F1 %s Tf\n%s Tz\n1 0 0 1 %s %s Tm\n<%X> Tj\n",
				num(fs), num(tz), num(x), num(baseY), text)
		}
	}
	c.WriteString("ET\n")
	return c.Bytes()
}

func encodeWinAnsi(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if bt, ok := charmap.Windows1252.EncodeRune(r); ok {
			out = append(out, bt)
			continue
		}
		out = append(out, '?')
	}
	return out
}

func deflate(b []byte) ([]byte, error) {
	var out bytes.Buffer
	zw := zlib.NewWriter(&out)
	if _, err := zw.Write(b); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// num 输出紧凑的 PDF 数字（最多两位小数，去掉多余的 0）。
func num(f float64) string {
	s := strconv.FormatFloat(f, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}

// objWriter 顺序写出对象并记录偏移，最后生成 xref。
type objWriter struct {
	buf     bytes.Buffer
	offsets []int
}

func (w *objWriter) header() {
	w.buf.WriteString("%PDF-1.4\n%\xE2\xE3\xCF\xD3\n")
}

func (w *objWriter) begin(id int) {
	for len(w.offsets) < id {
		w.offsets = append(w.offsets, 0)
	}
	w.offsets[id-1] = w.buf.Len()
	fmt.Fprintf(&w.buf, "%d 0 obj\n", id)
}

func (w *objWriter) obj(id int, dict string) {
	w.begin(id)
	w.buf.WriteString(dict)
	w.buf.WriteString("\nendobj\n")
}

func (w *objWriter) stream(id int, dict string, data []byte) {
	w.begin(id)
	w.buf.WriteString(dict)
	w.buf.WriteString("\nstream\n")
	w.buf.Write(data)
	w.buf.WriteString("\nendstream\nendobj\n")
}

func (w *objWriter) trailer(root int) {
	xref := w.buf.Len()
	fmt.Fprintf(&w.buf, "xref\n0 %d\n0000000000 65535 f \n", len(w.offsets)+1)
	for _, off := range w.offsets {
		fmt.Fprintf(&w.buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&w.buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(w.offsets)+1, root, xref)
}
