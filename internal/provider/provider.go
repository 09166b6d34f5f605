package provider

import (
	"context"
	"net/http"

	"github.com/John-Robertt/tomatoapi/internal/domain"
)

// Provider 把“站点变化”限制在 provider 子包内部；核心流程只依赖统一接口与稳定的 MovieRecord。
//
// 约束：
// - Search/Fetch 不做缓存、不做重试、不做限速
// - Parse 必须是纯函数：相同输入 => 相同输出
// - Search 返回未过滤的原始行（过滤策略在 domain.FilterListings）
// - Fetch 接受绝对 URL 或站内路径，返回实际抓取的绝对 URL
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, c *http.Client) ([]domain.SearchListing, error)
	Fetch(ctx context.Context, ref string, c *http.Client) (html []byte, pageURL string, err error)
	Parse(html []byte, pageURL string) (domain.MovieRecord, error)
}
