package query

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/John-Robertt/tomatoapi/internal/domain"
	"github.com/John-Robertt/tomatoapi/internal/provider"
)

// DefaultConcurrency 是 Search 同时解析详情页的默认上限。
const DefaultConcurrency = 4

// Service 把 provider 的“搜索 -> 抓取 -> 解析”组合成两种查询：单部电影与多结果搜索。
//
// 约束：
// - Service 不持有可变状态，可被多个请求并发使用
// - 不做缓存/重试；每次查询都重新抓取
type Service struct {
	Provider    provider.Provider
	Client      *http.Client
	Concurrency int // <=0 时使用 DefaultConcurrency
	Log         zerolog.Logger
}

// NormalizeName 把路径参数里的名称规范化为搜索词：下划线视为空格，合并空白。
// 页面地址（见 provider.IsPageRef）原样返回：站内路径本身就用下划线。
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if provider.IsPageRef(name) {
		return name
	}
	return strings.Join(strings.Fields(strings.ReplaceAll(name, "_", " ")), " ")
}

// Movie 返回名称的最佳匹配；name 是页面地址时直接抓取。
func (s *Service) Movie(ctx context.Context, name string) (domain.MovieRecord, error) {
	q := NormalizeName(name)
	if q == "" {
		return domain.MovieRecord{}, errors.New("名称不能为空")
	}

	started := time.Now()
	rec, err := provider.Lookup(ctx, s.Provider, q, s.Client)
	ev := s.Log.Debug()
	if err != nil {
		ev = s.Log.Warn().Err(err)
	}
	ev.Str("query", q).Dur("took", time.Since(started)).Msg("movie 查询完成")
	if err == nil {
		s.logDegraded(rec)
	}
	return rec, err
}

// Search 返回搜索页上所有合格的电影（页面顺序）。
//
// - 搜索本身失败时整体失败
// - 没有合格结果时返回空列表（不是错误）
// - 单个详情页失败只记录日志并跳过
func (s *Service) Search(ctx context.Context, name string) ([]domain.MovieRecord, error) {
	q := NormalizeName(name)
	if q == "" {
		return nil, errors.New("名称不能为空")
	}

	started := time.Now()
	rows, err := provider.Candidates(ctx, s.Provider, q, s.Client)
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			s.Log.Debug().Str("query", q).Msg("没有合格的搜索结果")
			return []domain.MovieRecord{}, nil
		}
		return nil, err
	}

	limit := s.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	// 每个结果写入自己的槽位，最后按页面顺序收集，不依赖完成顺序。
	slots := make([]*domain.MovieRecord, len(rows))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, row := range rows {
		g.Go(func() error {
			rec, err := provider.FetchParse(ctx, s.Provider, row.URL, s.Client)
			if err != nil {
				s.Log.Warn().Err(err).Str("url", row.URL).Msg(Humanize(err))
				return nil
			}
			s.logDegraded(rec)
			slots[i] = &rec
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.MovieRecord, 0, len(rows))
	for _, r := range slots {
		if r != nil {
			out = append(out, *r)
		}
	}
	if err := ctx.Err(); err != nil && len(out) == 0 {
		return nil, err
	}

	s.Log.Debug().
		Str("query", q).
		Int("listings", len(rows)).
		Int("movies", len(out)).
		Dur("took", time.Since(started)).
		Msg("search 查询完成")
	return out, nil
}

// logDegraded 记录解析时被降级的数据块；结果仍然返回，只是部分字段缺失。
func (s *Service) logDegraded(rec domain.MovieRecord) {
	if len(rec.Degraded) == 0 {
		return
	}
	s.Log.Debug().
		Str("title", rec.Title).
		Str("url", rec.Website).
		Strs("degraded", rec.Degraded).
		Msg("部分数据块解析失败，相关字段按缺失处理")
}

// Humanize 把查询错误翻译成面向使用者的一行提示（CLI 输出与日志使用）。
func Humanize(err error) string {
	if err == nil {
		return ""
	}

	name := "rottentomatoes"
	var pe *provider.Error
	if errors.As(err, &pe) {
		name = pe.Provider
	}

	var fu *provider.ForeignURLError
	if errors.As(err, &fu) {
		return fmt.Sprintf("页面地址必须位于 %s：%q", fu.Site, fu.URL)
	}

	var nf *provider.NotFoundError
	if errors.As(err, &nf) {
		return fmt.Sprintf("%s 没有找到带评分的电影：%q", name, nf.Query)
	}

	var be *provider.BlockedError
	if errors.As(err, &be) {
		return fmt.Sprintf("%s 被站点拦截（%s）。建议配置 scraper.proxy_url 或稍后重试。", name, be.Reason)
	}

	var hs *provider.HTTPStatusError
	if errors.As(err, &hs) {
		switch hs.StatusCode {
		case http.StatusNotFound:
			return fmt.Sprintf("%s 返回 HTTP 404（页面不存在或已下架）。", name)
		default:
			return fmt.Sprintf("%s 返回 HTTP %d。", name, hs.StatusCode)
		}
	}

	if errors.Is(err, provider.ErrPageUnavailable) {
		return fmt.Sprintf("%s 返回了空页面或不完整的页面：%v", name, err)
	}

	var ps *provider.ParseError
	if errors.As(err, &ps) {
		return fmt.Sprintf("%s 解析失败（站点结构可能变化，缺少 %s）：%v", name, ps.Block, err)
	}

	if errors.Is(err, provider.ErrNetwork) {
		low := strings.ToLower(err.Error())
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(low, "timeout") {
			return fmt.Sprintf("%s 抓取超时。建议检查网络/代理后重试。", name)
		}
		return fmt.Sprintf("%s 网络请求失败：%v", name, err)
	}
	return err.Error()
}
