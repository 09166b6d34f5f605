package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/John-Robertt/tomatoapi/internal/domain"
)

// Error 是 provider 阶段的可追溯错误。
// Unwrap 保留原始分类，上层仍然可以 errors.Is(err, ErrNotFound) 等。
type Error struct {
	Provider string // provider name（小写）
	Stage    string // "search" / "fetch" / "parse"
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider=%s stage=%s: %v", e.Provider, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Candidates 搜索并过滤出合格的电影行（页面顺序）。没有合格行时返回 NotFoundError。
func Candidates(ctx context.Context, p Provider, query string, c *http.Client) ([]domain.SearchListing, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query 不能为空")
	}
	rows, err := p.Search(ctx, query, c)
	if err != nil {
		return nil, &Error{Provider: p.Name(), Stage: "search", Err: err}
	}
	filtered := domain.FilterListings(rows)
	if len(filtered) == 0 {
		return nil, &Error{Provider: p.Name(), Stage: "search", Err: &NotFoundError{Query: query}}
	}
	return filtered, nil
}

// Resolve 返回最佳匹配（第一个合格行）的详情页 URL。
func Resolve(ctx context.Context, p Provider, query string, c *http.Client) (string, error) {
	rows, err := Candidates(ctx, p, query, c)
	if err != nil {
		return "", err
	}
	return rows[0].URL, nil
}

// FetchParse 抓取一次详情页并解析。
//
// 约束：每个 URL 只抓取一次；所有字段都从同一份 html 中提取。
func FetchParse(ctx context.Context, p Provider, ref string, c *http.Client) (domain.MovieRecord, error) {
	html, pageURL, err := p.Fetch(ctx, ref, c)
	if err != nil {
		return domain.MovieRecord{}, &Error{Provider: p.Name(), Stage: "fetch", Err: err}
	}
	rec, err := p.Parse(html, pageURL)
	if err != nil {
		return domain.MovieRecord{}, &Error{Provider: p.Name(), Stage: "parse", Err: err}
	}
	rec.Website = pageURL
	return rec, nil
}

// Lookup 是“名称或 URL => MovieRecord”的完整流程。
// query 是页面地址（见 IsPageRef）时跳过搜索。
func Lookup(ctx context.Context, p Provider, query string, c *http.Client) (domain.MovieRecord, error) {
	query = strings.TrimSpace(query)
	if IsPageRef(query) {
		return FetchParse(ctx, p, query, c)
	}
	u, err := Resolve(ctx, p, query, c)
	if err != nil {
		return domain.MovieRecord{}, err
	}
	return FetchParse(ctx, p, u, c)
}

// IsPageRef 判断输入是否已经是详情页地址（绝对 http(s) URL 或 /m/ 开头的站内路径）。
func IsPageRef(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "/m/")
}
