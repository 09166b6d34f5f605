package rottentomatoes

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/tomatoapi/internal/domain"
	providerx "github.com/John-Robertt/tomatoapi/internal/provider"
)

// 详情页上各字段的定位方式：按属性值（slot / data-qa）找元素，不依赖位置。
// 每个字段允许多个候选选择器，按顺序取第一个有值的（站点改版时只需追加新的标记）。
var (
	selCriticScore   = []string{`[slot="criticsScore"]`, `[data-qa="tomatometer"]`}
	selAudienceScore = []string{`[slot="audienceScore"]`, `[data-qa="audience-score"]`}
	selRating        = []string{`[slot="ratingsCode"]`, `[data-qa="rating"]`}
	selReleaseDate   = []string{`[slot="releaseDate"]`}
	selDuration      = []string{`[slot="duration"]`}
	selReviewCount   = []string{`[slot="criticsReviews"]`, `[data-qa="tomatometer-review-count"]`}
	selSynopsis      = []string{`[data-qa="synopsis-value"]`, `[data-qa="movie-info-synopsis"]`, `[slot="description"]`}
	selConsensus     = []string{`[data-qa="critics-consensus"]`, `#critics-consensus`}
)

// castLayout 描述演职员列表的一种页面结构（列表项 + 名字 + 角色）。
type castLayout struct {
	item, name, role string
}

var castLayouts = []castLayout{
	{item: `[data-qa="person-item"]`, name: `[data-qa="person-name"]`, role: `[data-qa="person-role"]`},
	{item: `[data-qa="cast-crew-item"]`, name: `[data-qa="cast-crew-item-name"]`, role: `[data-qa="cast-crew-item-role"]`},
}

const ldBlock = "ld+json"

// Parse 把详情页 HTML 解析为 MovieRecord。
//
// 每个字段独立提取：某个块缺失只让依赖它的字段为 None，不影响其他字段。
// 只有两种情况整体失败：页面为空（PageUnavailableError），或者拿不到标题（ParseError）。
func (p Provider) Parse(html []byte, pageURL string) (domain.MovieRecord, error) {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return domain.MovieRecord{}, errors.New("pageURL 不能为空")
	}
	if len(bytes.TrimSpace(html)) == 0 {
		return domain.MovieRecord{}, &providerx.PageUnavailableError{URL: pageURL, Reason: "empty body"}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return domain.MovieRecord{}, &providerx.PageUnavailableError{URL: pageURL, Reason: "invalid html", Err: err}
	}
	if isBlankDocument(doc) {
		return domain.MovieRecord{}, &providerx.PageUnavailableError{URL: pageURL, Reason: "empty document"}
	}

	pg := page{doc: doc}
	meta, metaErr := pg.metadata()

	title := ""
	if metaErr == nil {
		title = normSpace(meta.Name)
	}
	if title == "" {
		title = pg.ogTitle()
	}
	if title == "" {
		if metaErr == nil {
			metaErr = errors.New("ld+json 中没有 name")
		}
		return domain.MovieRecord{}, &providerx.ParseError{Block: "title", Err: metaErr}
	}

	rec := domain.MovieRecord{
		Title:            title,
		Synopsis:         pg.text(selSynopsis...),
		CriticScore:      pg.score(selCriticScore...),
		AudienceScore:    pg.score(selAudienceScore...),
		ReviewCount:      pg.count(selReviewCount...),
		ContentRating:    pg.text(selRating...),
		Duration:         pg.text(selDuration...),
		ReleaseDate:      pg.releaseDate(),
		Actors:           pg.cast(p.maxActors()),
		CriticsConsensus: pg.consensus(),
		Website:          pageURL,
	}
	rec.WeightedScore = domain.WeightedScore(rec.CriticScore, rec.AudienceScore)
	if d, ok := rec.ReleaseDate.Get(); ok {
		if y, ok := releaseYear(d); ok {
			rec.ReleaseYear = domain.Some(y)
		}
	}

	if metaErr == nil {
		if g := normList(meta.Genre); len(g) > 0 {
			rec.Genres = domain.Some(g)
		}
		if d := directorNames(meta.Director, p.maxDirectors()); len(d) > 0 {
			rec.Directors = domain.Some(d)
		}
		if img := resolveURL(pageURL, string(meta.Image)); img != "" {
			rec.PosterURL = domain.Some(img)
		}
		if u := strings.TrimSpace(meta.URL); u != "" {
			rec.CanonicalURL = domain.Some(resolveURL(pageURL, u))
		}
	} else {
		rec.Degraded = append(rec.Degraded, metaErr.Error())
	}
	return rec, nil
}

// page 是一次抓取得到的只读文档快照；所有字段访问器都读同一份 doc。
type page struct {
	doc *goquery.Document
}

func isBlankDocument(doc *goquery.Document) bool {
	if doc.Find("script, meta").Length() > 0 {
		return false
	}
	return strings.TrimSpace(doc.Find("body").Text()) == ""
}

// metadata 定位并解析 ld+json 结构化数据块。
// 页面上可能有多个 ld+json（面包屑等），优先取 @type=Movie 的那个，否则取第一个能解析的对象。
func (pg page) metadata() (ldMovie, error) {
	scripts := pg.doc.Find(`script[type="application/ld+json"]`)
	if scripts.Length() == 0 {
		return ldMovie{}, &providerx.ParseError{Block: ldBlock, Err: errors.New("未找到结构化数据块")}
	}

	var (
		first   *ldMovie
		lastErr error
	)
	scripts.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, m := range decodeLD([]byte(strings.TrimSpace(s.Text())), &lastErr) {
			if m.isMovie() {
				mm := m
				first = &mm
				return false
			}
			if first == nil {
				mm := m
				first = &mm
			}
		}
		return true
	})
	if first == nil {
		if lastErr == nil {
			lastErr = errors.New("结构化数据块为空")
		}
		return ldMovie{}, &providerx.ParseError{Block: ldBlock, Err: lastErr}
	}
	return *first, nil
}

// decodeLD 支持单个对象、对象数组与 @graph 三种写法。
func decodeLD(b []byte, lastErr *error) []ldMovie {
	if len(b) == 0 {
		return nil
	}
	var raws []json.RawMessage
	if b[0] == '[' {
		if err := json.Unmarshal(b, &raws); err != nil {
			*lastErr = err
			return nil
		}
	} else {
		var g struct {
			Graph []json.RawMessage `json:"@graph"`
		}
		if err := json.Unmarshal(b, &g); err != nil {
			*lastErr = err
			return nil
		}
		raws = append([]json.RawMessage{b}, g.Graph...)
	}

	out := make([]ldMovie, 0, len(raws))
	for _, r := range raws {
		var m ldMovie
		if err := json.Unmarshal(r, &m); err != nil {
			*lastErr = err
			continue
		}
		if m.Name == "" && len(m.Type) == 0 {
			continue
		}
		out = append(out, m)
	}
	return out
}

func (pg page) ogTitle() string {
	v, _ := pg.doc.Find(`meta[property="og:title"]`).First().Attr("content")
	v = normSpace(v)
	v = strings.TrimSuffix(v, "| Rotten Tomatoes")
	return strings.TrimSpace(v)
}

// text 返回第一个文本非空的匹配元素（空白已归一化）。
func (pg page) text(selectors ...string) domain.Opt[string] {
	for _, sel := range selectors {
		var out string
		pg.doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			out = normSpace(s.Text())
			return out == ""
		})
		if out != "" {
			return domain.Some(out)
		}
	}
	return domain.None[string]()
}

// score 返回第一个能解析为 0-100 百分比的匹配元素。
func (pg page) score(selectors ...string) domain.Opt[int] {
	for _, sel := range selectors {
		var (
			n  int
			ok bool
		)
		pg.doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			n, ok = parsePercent(s.Text())
			return !ok
		})
		if ok {
			return domain.Some(n)
		}
	}
	return domain.None[int]()
}

// count 返回第一个以整数开头的匹配元素（"450 Reviews" => 450）。
func (pg page) count(selectors ...string) domain.Opt[int] {
	for _, sel := range selectors {
		var (
			n  int
			ok bool
		)
		pg.doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			n, ok = leadingInt(s.Text())
			return !ok
		})
		if ok {
			return domain.Some(n)
		}
	}
	return domain.None[int]()
}

func (pg page) releaseDate() domain.Opt[string] {
	d, ok := pg.text(selReleaseDate...).Get()
	if !ok {
		return domain.None[string]()
	}
	d = strings.TrimSpace(strings.TrimPrefix(d, "Released"))
	if d == "" {
		return domain.None[string]()
	}
	return domain.Some(d)
}

// cast 按页面顺序提取演员，排除角色含 "Director" 的条目，最多 max 个。
// 第一个命中的列表结构生效，不混用多种结构。
func (pg page) cast(max int) []string {
	for _, l := range castLayouts {
		items := pg.doc.Find(l.item)
		if items.Length() == 0 {
			continue
		}
		seen := make(map[string]struct{}, max)
		out := make([]string, 0, max)
		items.EachWithBreak(func(_ int, s *goquery.Selection) bool {
			role := normSpace(s.Find(l.role).First().Text())
			if strings.Contains(role, "Director") {
				return true
			}
			name := normSpace(s.Find(l.name).First().Text())
			if name == "" {
				return true
			}
			if _, ok := seen[name]; ok {
				return true
			}
			seen[name] = struct{}{}
			out = append(out, name)
			return len(out) < max
		})
		return out
	}
	return []string{}
}

func (pg page) consensus() domain.Opt[string] {
	for _, sel := range selConsensus {
		s := pg.doc.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		txt := normSpace(s.Text())
		txt = strings.TrimSpace(strings.TrimPrefix(txt, "Critics Consensus"))
		txt = strings.TrimSpace(strings.TrimSuffix(txt, "Read Critics Reviews"))
		if txt != "" {
			return domain.Some(txt)
		}
	}
	return domain.None[string]()
}

func directorNames(people []ldPerson, max int) []string {
	names := make([]string, 0, len(people))
	for _, p := range people {
		name := ""
		for _, ref := range []string{p.SameAs, p.URL} {
			if strings.TrimSpace(ref) != "" {
				name = DirectorName(ref)
				break
			}
		}
		if name == "" {
			name = normSpace(p.Name)
		}
		names = append(names, name)
	}
	names = normList(names)
	if len(names) > max {
		names = names[:max]
	}
	return names
}
