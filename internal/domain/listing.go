package domain

// SearchListing 是搜索结果页中的一行（每次搜索临时构造，没有身份）。
type SearchListing struct {
	URL      string `json:"url"`
	IsMovie  bool   `json:"is_movie"`
	HasScore bool   `json:"has_score"`
}

// FilterListings 只保留“是电影且有 tomatometer 分数”的行，保持页面顺序。
// 页面顺序即站点自身的相关度排序，这里不做重排；对结果再次过滤得到相同结果。
func FilterListings(in []SearchListing) []SearchListing {
	out := make([]SearchListing, 0, len(in))
	for _, l := range in {
		if l.IsMovie && l.HasScore {
			out = append(out, l)
		}
	}
	return out
}
