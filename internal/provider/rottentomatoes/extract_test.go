package rottentomatoes

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/John-Robertt/tomatoapi/internal/domain"
	providerx "github.com/John-Robertt/tomatoapi/internal/provider"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("读取 fixture 失败：%v", err)
	}
	return b
}

func mustGet[T any](t *testing.T, field string, o domain.Opt[T]) T {
	t.Helper()
	v, ok := o.Get()
	if !ok {
		t.Fatalf("期望 %s 存在，实际缺失", field)
	}
	return v
}

func TestParse_TopGunMaverick(t *testing.T) {
	html := readFixture(t, "top_gun_maverick.html")
	rec, err := Provider{}.Parse(html, "https://www.rottentomatoes.com/m/top_gun_maverick")
	if err != nil {
		t.Fatalf("Parse 失败：%v", err)
	}

	if rec.Title != "Top Gun: Maverick" {
		t.Fatalf("期望 title=Top Gun: Maverick，实际=%q", rec.Title)
	}
	if len(rec.Degraded) != 0 {
		t.Fatalf("完整页面不应有降级记录：%q", rec.Degraded)
	}
	if got := mustGet(t, "rating", rec.ContentRating); got != "PG-13" {
		t.Fatalf("期望 rating=PG-13，实际=%q", got)
	}
	if got := mustGet(t, "duration", rec.Duration); got != "2h 11m" {
		t.Fatalf("期望 duration=2h 11m，实际=%q", got)
	}
	if got := mustGet(t, "tomatometer", rec.CriticScore); got != 96 {
		t.Fatalf("期望 tomatometer=96，实际=%d", got)
	}
	if got := mustGet(t, "audience_score", rec.AudienceScore); got != 99 {
		t.Fatalf("期望 audience_score=99，实际=%d", got)
	}
	if got := mustGet(t, "weighted_score", rec.WeightedScore); got != 97 {
		t.Fatalf("期望 weighted_score=97，实际=%d", got)
	}
	if got := mustGet(t, "num_of_reviews", rec.ReviewCount); got != 531 {
		t.Fatalf("期望 num_of_reviews=531，实际=%d", got)
	}
	if got := mustGet(t, "release_date", rec.ReleaseDate); got != "May 27, 2022" {
		t.Fatalf("期望 release_date=May 27, 2022，实际=%q", got)
	}
	if got := mustGet(t, "year", rec.ReleaseYear); got != "2022" {
		t.Fatalf("期望 year=2022，实际=%q", got)
	}
	if diff := cmp.Diff([]string{"Action", "Adventure"}, mustGet(t, "genres", rec.Genres)); diff != "" {
		t.Fatalf("genres 不符合预期 (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Joseph Kosinski"}, mustGet(t, "directors", rec.Directors)); diff != "" {
		t.Fatalf("directors 不符合预期 (-want +got):\n%s", diff)
	}
	wantActors := []string{"Tom Cruise", "Miles Teller", "Jennifer Connelly", "Jon Hamm", "Glen Powell"}
	if diff := cmp.Diff(wantActors, rec.Actors); diff != "" {
		t.Fatalf("actors 不符合预期 (-want +got):\n%s", diff)
	}
	if got := mustGet(t, "poster_url", rec.PosterURL); got != "https://resizing.flixster.com/top_gun_maverick_poster.jpg" {
		t.Fatalf("poster_url 不符合预期：%q", got)
	}
	if got := mustGet(t, "canonical_url", rec.CanonicalURL); got != "https://www.rottentomatoes.com/m/top_gun_maverick" {
		t.Fatalf("canonical_url 不符合预期：%q", got)
	}
	consensus := mustGet(t, "critics_consensus", rec.CriticsConsensus)
	if !strings.HasPrefix(consensus, "Top Gun: Maverick pulls off") || strings.Contains(consensus, "Read Critics Reviews") || strings.Contains(consensus, "Critics Consensus") {
		t.Fatalf("critics_consensus 没有去掉标题/尾部链接：%q", consensus)
	}
	if !strings.HasPrefix(mustGet(t, "synopsis", rec.Synopsis), "After more than thirty years") {
		t.Fatalf("synopsis 不符合预期：%q", rec.Synopsis.OrZero())
	}
}

func TestParse_HappyGilmore(t *testing.T) {
	html := readFixture(t, "happy_gilmore.html")
	rec, err := Provider{}.Parse(html, "https://www.rottentomatoes.com/m/happy_gilmore")
	if err != nil {
		t.Fatalf("Parse 失败：%v", err)
	}

	if diff := cmp.Diff([]string{"Comedy"}, mustGet(t, "genres", rec.Genres)); diff != "" {
		t.Fatalf("genres 不符合预期 (-want +got):\n%s", diff)
	}
	if got := mustGet(t, "audience_score", rec.AudienceScore); got != 85 {
		t.Fatalf("期望 audience_score=85，实际=%d", got)
	}
	if diff := cmp.Diff([]string{"Dennis Dugan"}, mustGet(t, "directors", rec.Directors)); diff != "" {
		t.Fatalf("directors 不符合预期 (-want +got):\n%s", diff)
	}
	wantActors := []string{"Adam Sandler", "Christopher McDonald", "Julie Bowen", "Frances Bay", "Carl Weathers"}
	if diff := cmp.Diff(wantActors, rec.Actors); diff != "" {
		t.Fatalf("actors 不符合预期 (-want +got):\n%s", diff)
	}
	if got := mustGet(t, "canonical_url", rec.CanonicalURL); got != "https://www.rottentomatoes.com/m/happy_gilmore" {
		t.Fatalf("相对 canonical url 应按页面地址补全，实际 %q", got)
	}
	if got := mustGet(t, "poster_url", rec.PosterURL); got != "https://resizing.flixster.com/happy_gilmore_poster.jpg" {
		t.Fatalf("poster_url 不符合预期：%q", got)
	}
	if got := mustGet(t, "year", rec.ReleaseYear); got != "1996" {
		t.Fatalf("期望 year=1996，实际=%q", got)
	}
	if rec.CriticsConsensus.IsSet() {
		t.Fatalf("页面没有 consensus 块，期望缺失，实际 %q", rec.CriticsConsensus.OrZero())
	}
}

func TestParse_MissingMetadataBlockKeepsScoreboard(t *testing.T) {
	html := readFixture(t, "no_ldjson.html")
	rec, err := Provider{}.Parse(html, "https://www.rottentomatoes.com/m/forrest_gump")
	if err != nil {
		t.Fatalf("Parse 失败：%v", err)
	}

	// 结构化数据块缺失：只影响依赖它的字段。
	if rec.Genres.IsSet() || rec.Directors.IsSet() || rec.PosterURL.IsSet() || rec.CanonicalURL.IsSet() {
		t.Fatalf("期望 genres/directors/poster/canonical 全部缺失，实际 %+v", rec)
	}
	// title 回退到 og:title。
	if rec.Title != "Forrest Gump" {
		t.Fatalf("期望 title 回退到 og:title，实际 %q", rec.Title)
	}
	if mustGet(t, "tomatometer", rec.CriticScore) != 71 || mustGet(t, "audience_score", rec.AudienceScore) != 95 {
		t.Fatalf("scoreboard 分数不符合预期：%+v %+v", rec.CriticScore, rec.AudienceScore)
	}
	if mustGet(t, "rating", rec.ContentRating) != "PG-13" || mustGet(t, "duration", rec.Duration) != "2h 22m" {
		t.Fatalf("rating/duration 不符合预期")
	}
	if mustGet(t, "num_of_reviews", rec.ReviewCount) != 1234 {
		t.Fatalf("期望 num_of_reviews=1234，实际 %+v", rec.ReviewCount)
	}
	if mustGet(t, "year", rec.ReleaseYear) != "1994" {
		t.Fatalf("期望 year=1994，实际 %+v", rec.ReleaseYear)
	}
	if rec.Synopsis.IsSet() {
		t.Fatalf("页面没有简介，期望缺失")
	}
	if diff := cmp.Diff([]string{"Tom Hanks", "Robin Wright"}, rec.Actors); diff != "" {
		t.Fatalf("actors 不符合预期 (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(mustGet(t, "critics_consensus", rec.CriticsConsensus), "Forrest Gump may be") {
		t.Fatalf("critics_consensus 不符合预期：%+v", rec.CriticsConsensus)
	}
}

func TestParse_MissingScoreboardKeepsMetadata(t *testing.T) {
	html := []byte(`<html><head><script type="application/ld+json">
{"@type":"Movie","name":"Solo","genre":["Drama"],"director":[{"name":"Some One","sameAs":"/celebrity/some_one"}]}
</script></head><body><p>coming soon</p></body></html>`)

	rec, err := Provider{}.Parse(html, "https://example.test/m/solo")
	if err != nil {
		t.Fatalf("Parse 失败：%v", err)
	}
	if rec.CriticScore.IsSet() || rec.AudienceScore.IsSet() || rec.WeightedScore.IsSet() {
		t.Fatalf("期望分数全部缺失，实际 %+v", rec)
	}
	if rec.ContentRating.IsSet() || rec.Duration.IsSet() || rec.ReleaseYear.IsSet() || rec.ReviewCount.IsSet() {
		t.Fatalf("期望 detail 字段全部缺失，实际 %+v", rec)
	}
	if len(rec.Actors) != 0 {
		t.Fatalf("期望 actors 为空，实际 %v", rec.Actors)
	}
	if diff := cmp.Diff([]string{"Drama"}, mustGet(t, "genres", rec.Genres)); diff != "" {
		t.Fatalf("genres 不符合预期 (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Some One"}, mustGet(t, "directors", rec.Directors)); diff != "" {
		t.Fatalf("directors 不符合预期 (-want +got):\n%s", diff)
	}
}

func TestParse_EmptyBodyIsPageUnavailable(t *testing.T) {
	for _, body := range []string{"", "   \n", "<html><body></body></html>"} {
		_, err := Provider{}.Parse([]byte(body), "https://example.test/m/x")
		if !errors.Is(err, providerx.ErrPageUnavailable) {
			t.Fatalf("body=%q 期望 ErrPageUnavailable，实际 %v", body, err)
		}
	}
}

func TestParse_NoTitleIsParseError(t *testing.T) {
	html := []byte(`<html><body><rt-text slot="duration">1h 30m</rt-text></body></html>`)
	_, err := Provider{}.Parse(html, "https://example.test/m/x")
	if !errors.Is(err, providerx.ErrParse) {
		t.Fatalf("期望 ErrParse，实际 %v", err)
	}
	var pe *providerx.ParseError
	if !errors.As(err, &pe) || pe.Block != "title" {
		t.Fatalf("期望 Block=title，实际 %+v", pe)
	}
}

func TestParse_MalformedMetadataFallsBack(t *testing.T) {
	html := []byte(`<html><head>
<meta property="og:title" content="Broken | Rotten Tomatoes">
<script type="application/ld+json">{"@type":"Movie","name":</script>
</head><body><rt-text slot="ratingsCode">R</rt-text></body></html>`)

	rec, err := Provider{}.Parse(html, "https://example.test/m/broken")
	if err != nil {
		t.Fatalf("Parse 失败：%v", err)
	}
	if rec.Title != "Broken" {
		t.Fatalf("期望 title=Broken，实际 %q", rec.Title)
	}
	if rec.Genres.IsSet() {
		t.Fatalf("结构化数据损坏时 genres 应缺失")
	}
	if mustGet(t, "rating", rec.ContentRating) != "R" {
		t.Fatalf("rating 不符合预期")
	}
	if len(rec.Degraded) != 1 || !strings.Contains(rec.Degraded[0], "ld+json") {
		t.Fatalf("应记录 ld+json 降级原因，实际 %q", rec.Degraded)
	}
}

func TestCast_RespectsMaxAndOrder(t *testing.T) {
	html := readFixture(t, "top_gun_maverick.html")
	for _, max := range []int{1, 3, 7, 50} {
		rec, err := Provider{MaxActors: max}.Parse(html, "https://www.rottentomatoes.com/m/top_gun_maverick")
		if err != nil {
			t.Fatalf("Parse 失败：%v", err)
		}
		if len(rec.Actors) > max {
			t.Fatalf("max=%d 但得到 %d 个演员", max, len(rec.Actors))
		}
		all := []string{"Tom Cruise", "Miles Teller", "Jennifer Connelly", "Jon Hamm", "Glen Powell", "Lewis Pullman", "Ed Harris", "Jerry Bruckheimer"}
		want := all
		if len(want) > max {
			want = all[:max]
		}
		if diff := cmp.Diff(want, rec.Actors); diff != "" {
			t.Fatalf("max=%d actors 不符合预期 (-want +got):\n%s", max, diff)
		}
		for _, a := range rec.Actors {
			if a == "Joseph Kosinski" {
				t.Fatalf("导演不应出现在演员列表中")
			}
		}
	}
}

func TestDirectorName(t *testing.T) {
	cases := map[string]string{
		"Joseph-Kosinski": "Joseph Kosinski",
		"Joseph_Kosinski": "Joseph Kosinski",
		"https://www.rottentomatoes.com/celebrity/joseph_kosinski":  "Joseph Kosinski",
		"https://www.rottentomatoes.com/celebrity/adil_el_arbi/":    "Adil El Arbi",
		"/celebrity/rick_rosenthal_2?ref=x":                         "Rick Rosenthal 2",
		"https://www.rottentomatoes.com/celebrity/dennis-dugan#top": "Dennis Dugan",
		"": "",
	}
	for in, want := range cases {
		if got := DirectorName(in); got != want {
			t.Fatalf("DirectorName(%q) 期望 %q，实际 %q", in, want, got)
		}
	}
}

func TestReleaseYear(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"May 27, 2022", "2022", true},
		{"Jul 6, 1994, Wide", "1994", true},
		{"2022", "", false},
		{"May 27, soon", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := releaseYear(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("releaseYear(%q) 期望 (%q,%v)，实际 (%q,%v)", tc.in, tc.want, tc.ok, got, ok)
		}
	}
}

func TestParsePercentAndLeadingInt(t *testing.T) {
	if n, ok := parsePercent(" 96% "); !ok || n != 96 {
		t.Fatalf("parsePercent 96%% 失败：%d %v", n, ok)
	}
	for _, s := range []string{"--", "", "%", "101%", "abc"} {
		if _, ok := parsePercent(s); ok {
			t.Fatalf("parsePercent(%q) 应为缺失", s)
		}
	}
	if n, ok := leadingInt("25,000+ Verified Ratings"); !ok || n != 25000 {
		t.Fatalf("leadingInt 失败：%d %v", n, ok)
	}
	if _, ok := leadingInt("Reviews"); ok {
		t.Fatalf("leadingInt 不应解析出数字")
	}
}
