package httpx

import (
	"compress/flate"
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultTimeout      = 20 * time.Second
	DefaultProbeTimeout = 7 * time.Second
)

// BrowserHeaders 是抓取页面时使用的固定请求头。
//
// 站点会对默认客户端标识返回不同内容甚至拦截。
var BrowserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (X11; Linux x86_64; rv:12.0) Gecko/20100101 Firefox/12.0",
	"Accept-Language": "en-US",
	"Accept-Encoding": "gzip, deflate",
	"Accept":          "text/html",
	"Referer":         "https://www.google.com",
}

// Transport 把“浏览器请求头 + 代理 + keep-alive 策略 + 压缩解码”固化为统一策略。
//
// 约束：
// - 不做重试：每个请求只尝试一次，重试策略属于调用方
// - 调用方已显式设置的请求头不覆盖
// - 手动声明了 Accept-Encoding 后 net/http 不会自动解压，因此这里负责解码 gzip/deflate
type Transport struct {
	Base *http.Transport

	Headers map[string]string

	// DisableKeepAlives 为 true 时对每个 Request 设置 Close=true。
	// 真正禁用 keep-alive 依赖 Base.DisableKeepAlives。
	DisableKeepAlives bool
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// Clone 会复制 Header 等，避免在 RoundTripper 内部“污染”调用方的 request。
	r := req.Clone(req.Context())
	for k, v := range t.Headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	if t.DisableKeepAlives {
		r.Close = true
	}

	resp, err := t.Base.RoundTrip(r)
	if err != nil {
		return nil, err
	}
	if err := decodeBody(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

func decodeBody(resp *http.Response) error {
	enc := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	var rc io.ReadCloser
	switch enc {
	case "gzip", "x-gzip":
		if resp.ContentLength == 0 {
			return nil
		}
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		rc = &decodedBody{Reader: zr, closers: []io.Closer{zr, resp.Body}}
	case "deflate":
		fr := flate.NewReader(resp.Body)
		rc = &decodedBody{Reader: fr, closers: []io.Closer{fr, resp.Body}}
	default:
		return nil
	}
	resp.Body = rc
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return nil
}

type decodedBody struct {
	io.Reader
	closers []io.Closer
}

func (b *decodedBody) Close() error {
	var first error
	for _, c := range b.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewMetaClient 构造用于页面抓取（搜索页 + 详情页）的 HTTP client。
//
// 规则：
// - proxyURL 非空：必须走代理，且禁用 keep-alive（每请求新连接）
// - 固定浏览器请求头
// - timeout<=0 时使用 DefaultTimeout
func NewMetaClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return newClient(strings.TrimSpace(proxyURL), timeout)
}

// NewProbeClient 构造用于代理探测的 HTTP client：必须指定代理，超时默认 7 秒。
func NewProbeClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	proxyURL = strings.TrimSpace(proxyURL)
	if proxyURL == "" {
		return nil, errors.New("proxy 不能为空")
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return newClient(proxyURL, timeout)
}

// ProxyURL 把 "host:port" 形式补全为 http://host:port；已带 scheme 的原样解析。
func ProxyURL(proxy string) (*url.URL, error) {
	proxy = strings.TrimSpace(proxy)
	if proxy == "" {
		return nil, errors.New("proxy 不能为空")
	}
	if !strings.Contains(proxy, "://") {
		proxy = "http://" + proxy
	}
	u, err := url.Parse(proxy)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, errors.New("proxy 缺少 host：" + proxy)
	}
	return u, nil
}

func newClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		MaxIdleConnsPerHost:   8,
	}

	disableKeepAlives := false
	if proxyURL != "" {
		u, err := ProxyURL(proxyURL)
		if err != nil {
			return nil, err
		}
		base.Proxy = http.ProxyURL(u)
		base.DisableKeepAlives = true
		disableKeepAlives = true
	}

	tr := &Transport{
		Base:              base,
		Headers:           BrowserHeaders,
		DisableKeepAlives: disableKeepAlives,
	}
	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}
