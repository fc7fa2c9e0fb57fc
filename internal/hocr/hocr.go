// Package hocr 解析 tesseract 输出的 hOCR（HTML + title 属性里的几何信息）。
package hocr

import (
	"bytes"
	"errors"
	"image"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Word 是一个识别出的单词及其像素坐标（原点在左上角）。
type Word struct {
	Text string
	Box  image.Rectangle
	Conf int
}

// Line 是一行单词；Baseline 为相对行框底边的像素偏移（tesseract 的 baseline 第二项）。
type Line struct {
	Box      image.Rectangle
	Baseline int
	Words    []Word
}

// Page 是一页识别结果。
type Page struct {
	Box   image.Rectangle
	Lines []Line
}

// Parse 解析 hOCR 文档中的第一页。
//
// 约束：
// - 必须存在 .ocr_page 且带 bbox，否则视为无效输入
// - 空白单词与没有 bbox 的单词被丢弃
// - 不在任何行里的单词归入一个以单词框为行框的伪行
func Parse(b []byte) (Page, error) {
	if len(b) == 0 {
		return Page{}, errors.New("hOCR 为空")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(b))
	if err != nil {
		return Page{}, err
	}

	pageSel := doc.Find(".ocr_page").First()
	if pageSel.Length() == 0 {
		return Page{}, errors.New("未找到 ocr_page")
	}
	title, _ := pageSel.Attr("title")
	props := parseTitle(title)
	box, ok := props.bbox()
	if !ok {
		return Page{}, errors.New("ocr_page 缺少 bbox")
	}
	page := Page{Box: box, Lines: []Line{}}

	lineSel := pageSel.Find(".ocr_line, .ocr_header, .ocr_caption, .ocr_textfloat")
	lineSel.Each(func(_ int, s *goquery.Selection) {
		t, _ := s.Attr("title")
		lp := parseTitle(t)
		lb, ok := lp.bbox()
		if !ok {
			return
		}
		line := Line{Box: lb, Baseline: lp.baselineOffset()}
		s.Find(".ocrx_word").Each(func(_ int, ws *goquery.Selection) {
			if w, ok := parseWord(ws); ok {
				line.Words = append(line.Words, w)
			}
		})
		if len(line.Words) > 0 {
			page.Lines = append(page.Lines, line)
		}
	})

	// 有些输出（或裁剪过的 hOCR）没有行元素。
	pageSel.Find(".ocrx_word").Each(func(_ int, ws *goquery.Selection) {
		if ws.ParentsFiltered(".ocr_line, .ocr_header, .ocr_caption, .ocr_textfloat").Length() > 0 {
			return
		}
		if w, ok := parseWord(ws); ok {
			page.Lines = append(page.Lines, Line{Box: w.Box, Words: []Word{w}})
		}
	})
	return page, nil
}

func parseWord(s *goquery.Selection) (Word, bool) {
	text := strings.TrimSpace(s.Text())
	if text == "" {
		return Word{}, false
	}
	t, _ := s.Attr("title")
	props := parseTitle(t)
	box, ok := props.bbox()
	if !ok {
		return Word{}, false
	}
	conf := -1
	if v := props["x_wconf"]; len(v) > 0 {
		if n, err := strconv.Atoi(v[0]); err == nil {
			conf = n
		}
	}
	return Word{Text: text, Box: box, Conf: conf}, true
}

// title 形如 `bbox 36 92 96 116; x_wconf 90`。
type titleProps map[string][]string

func parseTitle(s string) titleProps {
	out := titleProps{}
	for _, part := range strings.Split(s, ";") {
		f := strings.Fields(part)
		if len(f) == 0 {
			continue
		}
		out[f[0]] = f[1:]
	}
	return out
}

func (p titleProps) bbox() (image.Rectangle, bool) {
	v := p["bbox"]
	if len(v) != 4 {
		return image.Rectangle{}, false
	}
	var n [4]int
	for i, s := range v {
		x, err := strconv.Atoi(s)
		if err != nil {
			return image.Rectangle{}, false
		}
		n[i] = x
	}
	r := image.Rect(n[0], n[1], n[2], n[3])
	if r.Empty() {
		return image.Rectangle{}, false
	}
	return r, true
}

// baselineOffset 取 `baseline <slope> <offset>` 的 offset（像素，通常为负数）。
func (p titleProps) baselineOffset() int {
	v := p["baseline"]
	if len(v) != 2 {
		return 0
	}
	f, err := strconv.ParseFloat(v[1], 64)
	if err != nil {
		return 0
	}
	if f < 0 {
		return int(f - 0.5)
	}
	return int(f + 0.5)
}
