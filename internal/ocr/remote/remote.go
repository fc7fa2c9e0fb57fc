// Package remote 通过 HTTP OCR 服务实现 ocr.Engine。
//
// 协议：POST multipart/form-data（file=page.png, languages=eng+deu, dpi=300），
// 响应 200 + JSON {"hocr": "<html>..."}。
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/John-Robertt/searchpdf/internal/infra/imgx"
	"github.com/John-Robertt/searchpdf/internal/ocr"
)

const Name = "remote"

// 响应体上限：hOCR 再大也不应超过这个量级。
const maxResponseBytes = 64 << 20

type Response struct {
	HOCR  string `json:"hocr"`
	Error string `json:"error,omitempty"`
}

type Engine struct {
	URL    string
	Client *http.Client
	opts   ocr.Options
}

func New(url string, c *http.Client, opts ocr.Options) *Engine {
	return &Engine{URL: strings.TrimSpace(url), Client: c, opts: opts}
}

func (e *Engine) Name() string { return Name }

func (e *Engine) RecognizePage(ctx context.Context, img image.Image) ([]byte, error) {
	if e.URL == "" {
		return nil, &ocr.Error{Engine: Name, Err: errors.New("ocr_url 为空")}
	}
	if e.Client == nil {
		return nil, &ocr.Error{Engine: Name, Err: errors.New("http client 不能为空")}
	}
	data, err := imgx.EncodePNG(img)
	if err != nil {
		return nil, err
	}
	body, contentType, err := e.form(data)
	if err != nil {
		return nil, err
	}

	// bytes.Reader 会让 NewRequest 设置 GetBody，httpx 因此可以重试。
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader(body))
	if err != nil {
		return nil, &ocr.Error{Engine: Name, Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, &ocr.Error{Engine: Name, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &ocr.Error{Engine: Name, Err: err}
	}
	var out Response
	if resp.StatusCode != http.StatusOK {
		_ = json.Unmarshal(raw, &out)
		if out.Error != "" {
			return nil, &ocr.Error{Engine: Name, Err: fmt.Errorf("HTTP %d：%s", resp.StatusCode, out.Error)}
		}
		return nil, &ocr.Error{Engine: Name, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &ocr.Error{Engine: Name, Err: fmt.Errorf("响应不是有效 JSON：%w", err)}
	}
	if strings.TrimSpace(out.HOCR) == "" {
		return nil, &ocr.Error{Engine: Name, Err: errors.New("响应缺少 hocr")}
	}
	return ocr.PageFromHOCR(img, []byte(out.HOCR), e.opts.DPI)
}

func (e *Engine) form(png []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "page.png")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(png); err != nil {
		return nil, "", err
	}
	if len(e.opts.Languages) > 0 {
		if err := w.WriteField("languages", strings.Join(e.opts.Languages, "+")); err != nil {
			return nil, "", err
		}
	}
	if e.opts.DPI > 0 {
		if err := w.WriteField("dpi", strconv.Itoa(e.opts.DPI)); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
