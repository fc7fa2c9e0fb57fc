package httpx

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultTimeout  = 120 * time.Second
	defaultRetryMax = 2

	// UserAgent 是对 OCR 服务发起请求时的默认 UA。
	UserAgent = "searchpdf/1"
)

// Transport 把“默认 UA + 有界重试”固化为统一策略。
//
// OCR 引擎只负责“编码图片 + 解释响应”，不关心网络策略细节。
type Transport struct {
	Base http.RoundTripper

	// RetryMax 表示最大重试次数（不含首次尝试）。例如 2 表示最多 3 次尝试。
	RetryMax int

	// Backoff 是两次尝试之间的等待；nil 表示不等待。
	Backoff func(attempt int) time.Duration
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// 只对“可重放”的请求做重试：无 body，或 body 可以通过 GetBody 重新获取。
	canRetry := req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
	max := t.RetryMax
	if max < 0 {
		max = 0
	}
	if !canRetry {
		max = 0
	}

	var lastErr error
	for attempt := 0; attempt <= max; attempt++ {
		if attempt > 0 && t.Backoff != nil {
			if err := sleepCtx(req, t.Backoff(attempt)); err != nil {
				return nil, lastErr
			}
		}

		r, err := cloneRequest(req, attempt)
		if err != nil {
			return nil, err
		}
		if r.Header.Get("User-Agent") == "" {
			r.Header.Set("User-Agent", UserAgent)
		}

		resp, err := t.Base.RoundTrip(r)
		if err == nil {
			if attempt < max && retryableStatus(resp.StatusCode) {
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
				lastErr = &StatusError{Code: resp.StatusCode}
				continue
			}
			return resp, nil
		}
		lastErr = err
		if req.Context().Err() != nil {
			// ctx 已取消：不再重试，直接返回最后错误（更可解释）。
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// StatusError 表示服务端返回了非预期的 HTTP 状态码。
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return "HTTP " + http.StatusText(e.Code) + "（" + strconv.Itoa(e.Code) + "）"
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusTooManyRequests:
		return true
	}
	return false
}

func cloneRequest(req *http.Request, attempt int) (*http.Request, error) {
	// Clone 会复制 Header 等，避免在 RoundTripper 内部“污染”调用方的 request。
	r := req.Clone(req.Context())
	if attempt > 0 && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		r.Body = body
	}
	return r, nil
}

func sleepCtx(req *http.Request, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-req.Context().Done():
		return req.Context().Err()
	case <-timer.C:
		return nil
	}
}

// NewOCRClient 构造用于远程 OCR 服务的 HTTP client。
//
// 规则：
// - timeout<=0 时使用默认总超时
// - 有界重试（仅可重放请求；网络错误与 429/502/503/504）
func NewOCRClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
	return &http.Client{
		Transport: &Transport{
			Base:     base,
			RetryMax: defaultRetryMax,
			Backoff:  linearBackoff,
		},
		Timeout: timeout,
	}
}

func linearBackoff(attempt int) time.Duration {
	return time.Duration(attempt) * 500 * time.Millisecond
}
