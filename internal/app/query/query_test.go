package query

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/tomatoapi/internal/domain"
	"github.com/John-Robertt/tomatoapi/internal/provider"
)

// fakeProvider 按 URL 返回固定结果；parse 失败用 "broken" 页面触发。
type fakeProvider struct {
	mu       sync.Mutex
	queries  []string
	rows     []domain.SearchListing
	searchFn func(query string) error
	pages    map[string]string
	delay    map[string]time.Duration
	inflight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Search(_ context.Context, query string, _ *http.Client) ([]domain.SearchListing, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.searchFn != nil {
		if err := f.searchFn(query); err != nil {
			return nil, err
		}
	}
	return f.rows, nil
}

func (f *fakeProvider) Fetch(_ context.Context, ref string, _ *http.Client) ([]byte, string, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if d := f.delay[ref]; d > 0 {
		time.Sleep(d)
	}
	title, ok := f.pages[ref]
	if !ok {
		return nil, ref, &provider.PageUnavailableError{URL: ref, Err: &provider.HTTPStatusError{URL: ref, StatusCode: 404}}
	}
	return []byte(title), ref, nil
}

func (f *fakeProvider) Parse(html []byte, pageURL string) (domain.MovieRecord, error) {
	if string(html) == "broken" {
		return domain.MovieRecord{}, &provider.ParseError{Block: "title", Err: errors.New("没有标题")}
	}
	if title, ok := strings.CutPrefix(string(html), "degraded:"); ok {
		return domain.MovieRecord{Title: title, Degraded: []string{"解析 ld+json 失败：unexpected EOF"}}, nil
	}
	return domain.MovieRecord{Title: string(html), CanonicalURL: domain.Some(pageURL)}, nil
}

func (f *fakeProvider) lastQuery() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return ""
	}
	return f.queries[len(f.queries)-1]
}

func row(u string, scored bool) domain.SearchListing {
	return domain.SearchListing{URL: u, IsMovie: strings.Contains(u, "/m/"), HasScore: scored}
}

func newService(p provider.Provider) *Service {
	return &Service{Provider: p, Client: http.DefaultClient, Log: zerolog.Nop()}
}

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"top_gun":              "top gun",
		"top gun":              "top gun",
		"  top__gun_ maverick": "top gun maverick",
		"/m/top_gun_maverick":  "/m/top_gun_maverick",
		"https://www.rottentomatoes.com/m/happy_gilmore": "https://www.rottentomatoes.com/m/happy_gilmore",
		"___": "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeName(in), "in=%q", in)
	}
}

func TestMovie_UnderscoreEqualsSpace(t *testing.T) {
	p := &fakeProvider{
		rows:  []domain.SearchListing{row("/m/top_gun", true)},
		pages: map[string]string{"/m/top_gun": "Top Gun"},
	}
	s := newService(p)

	a, err := s.Movie(context.Background(), "top_gun")
	require.NoError(t, err)
	assert.Equal(t, "top gun", p.lastQuery())

	b, err := s.Movie(context.Background(), "top gun")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, "Top Gun", a.Title)
	assert.Equal(t, "/m/top_gun", a.Website)
}

func TestMovie_PageRefSkipsSearch(t *testing.T) {
	p := &fakeProvider{pages: map[string]string{"/m/happy_gilmore": "Happy Gilmore"}}
	rec, err := newService(p).Movie(context.Background(), "/m/happy_gilmore")
	require.NoError(t, err)
	assert.Equal(t, "Happy Gilmore", rec.Title)
	assert.Empty(t, p.queries)
}

func TestMovie_Errors(t *testing.T) {
	_, err := newService(&fakeProvider{}).Movie(context.Background(), " _ ")
	require.Error(t, err)

	_, err = newService(&fakeProvider{rows: []domain.SearchListing{row("/tv/x", true)}}).Movie(context.Background(), "x")
	require.ErrorIs(t, err, provider.ErrNotFound)

	netErr := &provider.NetworkError{URL: "u", Err: errors.New("connection refused")}
	_, err = newService(&fakeProvider{searchFn: func(string) error { return netErr }}).Movie(context.Background(), "x")
	require.ErrorIs(t, err, provider.ErrNetwork)
	assert.NotErrorIs(t, err, provider.ErrNotFound)
}

func TestMovie_LogsDegradedBlocks(t *testing.T) {
	p := &fakeProvider{pages: map[string]string{
		"/m/broken_ld":  "degraded:Broken",
		"/m/happy_path": "Happy",
	}}
	var buf bytes.Buffer
	s := &Service{Provider: p, Client: http.DefaultClient, Log: zerolog.New(&buf).Level(zerolog.DebugLevel)}

	rec, err := s.Movie(context.Background(), "/m/broken_ld")
	require.NoError(t, err)
	assert.Equal(t, "Broken", rec.Title)
	assert.Contains(t, buf.String(), `"degraded":["解析 ld+json 失败：unexpected EOF"]`)
	assert.Contains(t, buf.String(), `"url":"/m/broken_ld"`)

	buf.Reset()
	_, err = s.Movie(context.Background(), "/m/happy_path")
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "degraded")

	// Search 的逐条结果同样记录。
	p.rows = []domain.SearchListing{row("/m/broken_ld", true), row("/m/happy_path", true)}
	buf.Reset()
	recs, err := s.Search(context.Background(), "broken")
	require.NoError(t, err)
	assert.Len(t, recs, 2)
	assert.Equal(t, 1, strings.Count(buf.String(), `"degraded"`))
}

func TestSearch_OrderAndSkip(t *testing.T) {
	p := &fakeProvider{
		rows: []domain.SearchListing{
			row("/m/a", true),
			row("/tv/show", true),
			row("/m/b", true),
			row("/m/unscored", false),
			row("/m/missing", true),
			row("/m/broken", true),
			row("/m/c", true),
		},
		pages: map[string]string{
			"/m/a":        "A",
			"/m/b":        "B",
			"/m/unscored": "U",
			"/m/broken":   "broken",
			"/m/c":        "C",
		},
		// 先完成的不一定排在前面。
		delay: map[string]time.Duration{"/m/a": 30 * time.Millisecond},
	}
	s := newService(p)
	s.Concurrency = 2

	got, err := s.Search(context.Background(), "some_movie")
	require.NoError(t, err)
	assert.Equal(t, "some movie", p.lastQuery())

	titles := make([]string, 0, len(got))
	for _, r := range got {
		titles = append(titles, r.Title)
	}
	assert.Equal(t, []string{"A", "B", "C"}, titles)
	assert.LessOrEqual(t, p.peak.Load(), int32(2))
}

func TestSearch_NoResultsIsEmptyList(t *testing.T) {
	got, err := newService(&fakeProvider{rows: []domain.SearchListing{row("/m/x", false)}}).Search(context.Background(), "x")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSearch_NetworkErrorAborts(t *testing.T) {
	p := &fakeProvider{searchFn: func(string) error {
		return &provider.NetworkError{URL: "u", Err: errors.New("timeout")}
	}}
	_, err := newService(p).Search(context.Background(), "x")
	require.ErrorIs(t, err, provider.ErrNetwork)
}

func TestHumanize(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&provider.Error{Provider: "rottentomatoes", Stage: "search", Err: &provider.NotFoundError{Query: "zz"}}, `没有找到带评分的电影："zz"`},
		{&provider.NetworkError{URL: "u", Err: &provider.BlockedError{URL: "u", Reason: "Forbidden"}}, "被站点拦截（Forbidden）"},
		{&provider.PageUnavailableError{URL: "u", Err: &provider.HTTPStatusError{URL: "u", StatusCode: 404}}, "HTTP 404"},
		{&provider.PageUnavailableError{URL: "u", Reason: "empty body"}, "空页面"},
		{&provider.ParseError{Block: "title", Err: errors.New("x")}, "缺少 title"},
		{&provider.NetworkError{URL: "u", Err: context.DeadlineExceeded}, "抓取超时"},
		{&provider.NetworkError{URL: "u", Err: errors.New("refused")}, "网络请求失败"},
		{&provider.ForeignURLError{URL: "http://169.254.169.254/", Site: "https://www.rottentomatoes.com"}, "页面地址必须位于 https://www.rottentomatoes.com"},
		{errors.New("其他"), "其他"},
	}
	for _, c := range cases {
		assert.Contains(t, Humanize(c.err), c.want)
	}
	assert.Empty(t, Humanize(nil))
}
