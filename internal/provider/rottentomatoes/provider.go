package rottentomatoes

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/John-Robertt/tomatoapi/internal/domain"
	providerx "github.com/John-Robertt/tomatoapi/internal/provider"
)

const (
	DefaultBaseURL      = "https://www.rottentomatoes.com"
	DefaultMaxActors    = 5
	DefaultMaxDirectors = 5
)

// Provider 实现 Rotten Tomatoes 的搜索、详情页抓取与 HTML 解析。
//
// 约束：
// - 先搜索再进入详情页；调用方已经有详情页 URL 时可以直接 Fetch
// - Search/Fetch 不做缓存/重试/限速
// - Parse 必须是纯函数（只依赖输入 html + pageURL）
type Provider struct {
	// BaseURL 为空时使用 https://www.rottentomatoes.com（测试里指向 httptest server）。
	BaseURL string

	// MaxActors/MaxDirectors <= 0 时使用默认值 5。
	MaxActors    int
	MaxDirectors int
}

func (Provider) Name() string { return "rottentomatoes" }

func (p Provider) baseURL() string {
	u := strings.TrimSpace(p.BaseURL)
	if u == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(u, "/")
}

func (p Provider) maxActors() int {
	if p.MaxActors <= 0 {
		return DefaultMaxActors
	}
	return p.MaxActors
}

func (p Provider) maxDirectors() int {
	if p.MaxDirectors <= 0 {
		return DefaultMaxDirectors
	}
	return p.MaxDirectors
}

// Search 请求站点搜索页并返回全部结果行（未过滤）。
// 传输层失败与非 2xx 都归为 NetworkError：这一步失败时调用方可以重试。
func (p Provider) Search(ctx context.Context, query string, c *http.Client) ([]domain.SearchListing, error) {
	if c == nil {
		return nil, errors.New("http client 不能为空")
	}
	u := SearchURL(p.baseURL(), query)
	b, err := fetchURL(ctx, c, u)
	if err != nil {
		return nil, &providerx.NetworkError{URL: u, Err: unwrapFetch(err)}
	}
	return ParseListings(b, p.baseURL()+"/")
}

// Fetch 抓取详情页。ref 可以是绝对 URL，也可以是 /m/... 站内路径。
// 绝对 URL 的 scheme 与 host 必须和 BaseURL 一致，否则返回 ForeignURLError 且不发请求。
func (p Provider) Fetch(ctx context.Context, ref string, c *http.Client) ([]byte, string, error) {
	if c == nil {
		return nil, "", errors.New("http client 不能为空")
	}
	pageURL := resolveURL(p.baseURL()+"/", ref)
	if pageURL == "" {
		return nil, "", errors.New("页面地址不能为空")
	}
	if !sameSite(pageURL, p.baseURL()) {
		return nil, "", &providerx.ForeignURLError{URL: pageURL, Site: p.baseURL()}
	}
	b, err := fetchURL(ctx, c, pageURL)
	if err != nil {
		var fe *fetchError
		if errors.As(err, &fe) && fe.transport {
			return nil, pageURL, &providerx.NetworkError{URL: pageURL, Err: fe.Err}
		}
		return nil, pageURL, &providerx.PageUnavailableError{URL: pageURL, Err: unwrapFetch(err)}
	}
	return b, pageURL, nil
}

// fetchError 区分“请求没到达/没读完”（transport=true）与“站点给了不可用的响应”。
type fetchError struct {
	transport bool
	Err       error
}

func (e *fetchError) Error() string { return e.Err.Error() }

func (e *fetchError) Unwrap() error { return e.Err }

func unwrapFetch(err error) error {
	var fe *fetchError
	if errors.As(err, &fe) {
		return fe.Err
	}
	return err
}

func fetchURL(ctx context.Context, c *http.Client, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, &fetchError{transport: true, Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &fetchError{transport: true, Err: err}
	}

	switch resp.StatusCode {
	case http.StatusForbidden, http.StatusTooManyRequests:
		// 站点对“像机器人”的请求通常给 403/429 拦截页，不尝试绕过。
		return nil, &fetchError{Err: &providerx.BlockedError{URL: u, Reason: http.StatusText(resp.StatusCode)}}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &fetchError{Err: &providerx.HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}}
	}
	return b, nil
}

// sameSite 比较 scheme 与 host（含端口，host 不区分大小写）；带 userinfo 的地址一律拒绝。
func sameSite(pageURL, base string) bool {
	pu, err := url.Parse(pageURL)
	if err != nil || pu.User != nil {
		return false
	}
	bu, err := url.Parse(base)
	if err != nil {
		return false
	}
	return strings.EqualFold(pu.Scheme, bu.Scheme) && strings.EqualFold(pu.Host, bu.Host)
}

func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	ru, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(ru).String()
}
