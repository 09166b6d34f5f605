package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/John-Robertt/tomatoapi/internal/domain"
	"github.com/John-Robertt/tomatoapi/internal/provider"
)

// LiveMessage 是 GET / 的响应体。
const LiveMessage = "API is live. Use /movie/{name} or /search/{name}."

// Querier 是 HTTP 层依赖的查询能力（由 query.Service 实现）。
type Querier interface {
	Movie(ctx context.Context, name string) (domain.MovieRecord, error)
	Search(ctx context.Context, name string) ([]domain.MovieRecord, error)
}

// SearchResponse 是 GET /search/:name 的响应体。
type SearchResponse struct {
	Movies []domain.MovieRecord `json:"movies"`
}

// Server 是只读的 JSON 查询服务：无鉴权、无限流、无缓存。
type Server struct {
	echo   *echo.Echo
	q      Querier
	logger zerolog.Logger
}

func NewServer(q Querier, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:   e,
		q:      q,
		logger: logger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogMethod:    true,
		LogError:     true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := s.logger.Info()
			if v.Error != nil {
				ev = s.logger.Warn().Err(v.Error)
			}
			ev.Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))
}

func (s *Server) setupRoutes() {
	s.echo.GET("/", s.live)
	s.echo.GET("/healthz", s.healthCheck)
	s.echo.GET("/movie/:name", s.getMovie)
	s.echo.GET("/search/:name", s.searchMovies)
}

// Start 阻塞监听 address；Shutdown 后返回 http.ErrServerClosed。
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// Handler 返回底层 http.Handler（测试与嵌入使用）。
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) live(c echo.Context) error {
	return c.String(http.StatusOK, LiveMessage)
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getMovie(c echo.Context) error {
	name, err := nameParam(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	rec, err := s.q.Movie(ctx, name)
	if err != nil {
		return httpError(ctx, err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) searchMovies(c echo.Context) error {
	name, err := nameParam(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	movies, err := s.q.Search(ctx, name)
	if err != nil {
		return httpError(ctx, err)
	}
	if movies == nil {
		movies = []domain.MovieRecord{}
	}
	return c.JSON(http.StatusOK, SearchResponse{Movies: movies})
}

// nameParam 取出路径参数；页面地址以 %2F 编码传入时在这里还原。
func nameParam(c echo.Context) (string, error) {
	name := c.Param("name")
	if v, err := url.PathUnescape(name); err == nil {
		name = v
	}
	if strings.Trim(name, " _") == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	return name, nil
}

// httpError 把查询错误映射为 HTTP 状态码：
// - 请求本身的 ctx 已取消或超时 => 503（优先于其他分类：此时的网络错误只是取消的结果）
// - 页面地址不属于站点 => 400
// - NotFound => 404
// - 详情页上游 404 => 404；其余页面不可用 / 网络（含抓取 client 自身超时）/ 标题解析失败 => 502
func httpError(ctx context.Context, err error) *echo.HTTPError {
	if ctx.Err() != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "request cancelled").SetInternal(err)
	}

	var fu *provider.ForeignURLError
	if errors.As(err, &fu) {
		return echo.NewHTTPError(http.StatusBadRequest, "url must be on "+fu.Site).SetInternal(err)
	}

	var nf *provider.NotFoundError
	if errors.As(err, &nf) {
		return echo.NewHTTPError(http.StatusNotFound, "movie not found: "+nf.Query).SetInternal(err)
	}

	var pu *provider.PageUnavailableError
	if errors.As(err, &pu) {
		if pu.StatusCode() == http.StatusNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "movie page not found: "+pu.URL).SetInternal(err)
		}
		return echo.NewHTTPError(http.StatusBadGateway, "movie page unavailable").SetInternal(err)
	}

	switch {
	case errors.Is(err, provider.ErrNetwork):
		return echo.NewHTTPError(http.StatusBadGateway, "upstream request failed").SetInternal(err)
	case errors.Is(err, provider.ErrParse):
		return echo.NewHTTPError(http.StatusBadGateway, "movie page could not be parsed").SetInternal(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "request cancelled").SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
}
