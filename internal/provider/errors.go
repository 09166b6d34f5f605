package provider

import (
	"errors"
	"fmt"
	"strings"
)

// 错误分类（调用方用 errors.Is 判断）：
// - ErrNetwork：到达站点的传输层失败（超时/DNS/连接重置）；核心不重试，调用方可自行重试
// - ErrNotFound：搜索后没有任何合格候选
// - ErrPageUnavailable：拿到了响应，但不是可用的电影详情页
// - ErrParse：预期存在的结构块缺失或损坏；除 title 外只降级相关字段
// - ErrForeignURL：页面地址不属于站点，请求不会发出
var (
	ErrNetwork         = errors.New("network error")
	ErrNotFound        = errors.New("movie not found")
	ErrPageUnavailable = errors.New("page unavailable")
	ErrParse           = errors.New("parse error")
	ErrForeignURL      = errors.New("foreign url")
)

// HTTPStatusError 表示站点返回了非 2xx 的 HTTP 状态码。
// 它只作为原因（cause）出现，外层一定是 NetworkError 或 PageUnavailableError。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Location   string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	loc := strings.TrimSpace(e.Location)
	if loc == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d location=%s", e.StatusCode, loc)
}

// BlockedError 表示站点返回了“验证/拦截”页面而不是正常内容。
// 不尝试绕过，直接视为页面不可用。
type BlockedError struct {
	URL    string
	Reason string
}

func (e *BlockedError) Error() string {
	if e == nil {
		return "blocked"
	}
	if strings.TrimSpace(e.Reason) == "" {
		return "blocked"
	}
	return "blocked: " + strings.TrimSpace(e.Reason)
}

// NetworkError 表示请求没有到达站点或响应没有读完（超时/DNS/连接重置），或搜索页不可用。
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("请求 %s 失败：%v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// NotFoundError 携带原始查询，便于排查。
type NotFoundError struct {
	Query string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("movie not found: %q", e.Query)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// PageUnavailableError 表示拿到了响应，但不是可用的电影详情页（非 2xx、空页面、被拦截）。
type PageUnavailableError struct {
	URL    string
	Reason string
	Err    error
}

func (e *PageUnavailableError) Error() string {
	msg := "页面不可用：" + e.URL
	if e.Reason != "" {
		msg += "（" + e.Reason + "）"
	}
	if e.Err != nil {
		msg += "：" + e.Err.Error()
	}
	return msg
}

func (e *PageUnavailableError) Unwrap() error { return e.Err }

func (e *PageUnavailableError) Is(target error) bool { return target == ErrPageUnavailable }

// StatusCode 返回上游 HTTP 状态码（没有则为 0）。
func (e *PageUnavailableError) StatusCode() int {
	var se *HTTPStatusError
	if errors.As(e.Err, &se) {
		return se.StatusCode
	}
	return 0
}

// ParseError 表示某个结构块（例如 "ld+json"）缺失或无法解析。
type ParseError struct {
	Block string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("解析 %s 失败", e.Block)
	}
	return fmt.Sprintf("解析 %s 失败：%v", e.Block, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// ForeignURLError 表示页面地址的 scheme/host 与站点根地址不一致，直接拒绝，不发起请求。
type ForeignURLError struct {
	URL  string
	Site string
}

func (e *ForeignURLError) Error() string {
	return fmt.Sprintf("页面地址 %q 不属于站点 %s", e.URL, e.Site)
}

func (e *ForeignURLError) Is(target error) bool { return target == ErrForeignURL }
