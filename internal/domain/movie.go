package domain

import "math"

// MovieRecord 是一次查询最终组装出的结构化结果（对外 JSON 契约）。
//
// 约束：
// - 所有字段都来自同一次抓取的同一份页面快照
// - 页面上缺失的字段用 Opt 的 None 表示（JSON 为 null），不做默认值填充
// - Website 是实际抓取的详情页 URL；CanonicalURL 来自页面自身的结构化数据
type MovieRecord struct {
	Title    string      `json:"name"`
	Synopsis Opt[string] `json:"synopsis"`

	CriticScore   Opt[int] `json:"tomatometer"`
	ReviewCount   Opt[int] `json:"num_of_reviews"`
	AudienceScore Opt[int] `json:"audience_score"`
	WeightedScore Opt[int] `json:"weighted_score"`

	Genres        Opt[[]string] `json:"genres"`
	ContentRating Opt[string]   `json:"rating"`
	Duration      Opt[string]   `json:"duration"`
	ReleaseDate   Opt[string]   `json:"release_date"`
	ReleaseYear   Opt[string]   `json:"year"`

	Actors    []string      `json:"actors"`
	Directors Opt[[]string] `json:"directors"`

	CriticsConsensus Opt[string] `json:"critics_consensus"`

	PosterURL    Opt[string] `json:"poster_url"`
	CanonicalURL Opt[string] `json:"canonical_url"`
	Website      string      `json:"url"`

	// Degraded 记录解析时被跳过的数据块及原因（字段已按缺失处理），只用于日志，不输出。
	Degraded []string `json:"-"`
}

// WeightedScore 是本系统自己的加权分（不是站点提供的值）：
// critic 权重 2/3、audience 权重 1/3，四舍五入取整。
// 只有一个分数时直接返回该分数；两个都缺失时返回 None。
func WeightedScore(critic, audience Opt[int]) Opt[int] {
	c, cok := critic.Get()
	a, aok := audience.Get()
	switch {
	case cok && aok:
		return Some(int(math.Round(2.0/3.0*float64(c) + 1.0/3.0*float64(a))))
	case cok:
		return Some(c)
	case aok:
		return Some(a)
	default:
		return None[int]()
	}
}
