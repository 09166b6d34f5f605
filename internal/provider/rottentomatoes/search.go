package rottentomatoes

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/tomatoapi/internal/domain"
)

// 搜索结果行的标签名与分数属性。旧版页面用 tomatometerscore，新版用 tomatometer-score。
const searchRowTag = "search-page-media-row"

var scoreAttrs = []string{"tomatometer-score", "tomatometerscore"}

// SearchURL 构造站点搜索地址：<base>/search?search=top%20gun%20maverick
//
// 站点对 "+" 与 "%20" 的处理不同，所以空格必须编码为 %20（不能直接用 url.QueryEscape 整串编码）；
// 单个词内部的特殊字符仍然按 query 规则转义。
func SearchURL(base, query string) string {
	words := strings.Fields(query)
	for i, w := range words {
		words[i] = url.QueryEscape(w)
	}
	return strings.TrimRight(base, "/") + "/search?search=" + strings.Join(words, "%20")
}

// ParseListings 从搜索结果页中按页面顺序提取所有结果行。
// 行内没有链接的条目直接跳过（无法定位详情页）。
func ParseListings(searchHTML []byte, base string) ([]domain.SearchListing, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(searchHTML))
	if err != nil {
		return nil, err
	}

	out := make([]domain.SearchListing, 0, 16)
	doc.Find(searchRowTag).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Find("a[href]").First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		u := resolveURL(base, href)
		out = append(out, domain.SearchListing{
			URL:      u,
			IsMovie:  isMoviePath(u),
			HasScore: hasScore(s),
		})
	})
	return out, nil
}

func hasScore(s *goquery.Selection) bool {
	for _, a := range scoreAttrs {
		if v, ok := s.Attr(a); ok && strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

// isMoviePath：电影详情页路径形如 /m/<slug>；剧集是 /tv/<slug>。
func isMoviePath(u string) bool {
	p := u
	if pu, err := url.Parse(u); err == nil {
		p = pu.Path
	}
	return strings.Contains(p, "/m/")
}
