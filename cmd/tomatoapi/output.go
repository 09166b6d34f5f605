package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/John-Robertt/tomatoapi/internal/config"
	"github.com/John-Robertt/tomatoapi/internal/domain"
)

// printMovieText 输出单部电影的人类可读摘要；缺失字段显示为 "-"。
func printMovieText(w io.Writer, rec domain.MovieRecord) {
	fmt.Fprintf(w, "%s, %s, %s.\n", rec.Title, orDash(rec.ContentRating), orDash(rec.Duration))
	fmt.Fprintf(w, "Released in %s.\n", orDash(rec.ReleaseYear))
	fmt.Fprintf(w, "Tomatometer: %s\n", intOrDash(rec.CriticScore))
	fmt.Fprintf(w, "Weighted score: %s\n", intOrDash(rec.WeightedScore))
	fmt.Fprintf(w, "Audience Score: %s\n", intOrDash(rec.AudienceScore))
	fmt.Fprintf(w, "Genres - %s\n", listOrDash(rec.Genres.OrZero()))
	fmt.Fprintf(w, "Directors - %s\n", listOrDash(rec.Directors.OrZero()))
	fmt.Fprintf(w, "Prominent actors: %s.\n", listOrDash(rec.Actors))
	if rec.Website != "" {
		fmt.Fprintf(w, "%s\n", rec.Website)
	}
}

// printEffective 在 serve 启动时把生效配置写到 stderr（不影响 stdout）。
func printEffective(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "配置（生效）:")
	fmt.Fprintf(w, "  listen: %s\n", cfg.Server.Addr())
	fmt.Fprintf(w, "  base_url: %s\n", cfg.Scraper.BaseURL)
	fmt.Fprintf(w, "  proxy: %s\n", formatProxy(cfg.Scraper.ProxyURL))
	fmt.Fprintf(w, "  timeout: %s\n", cfg.Scraper.Timeout)
	fmt.Fprintf(w, "  search_concurrency: %d\n", cfg.Scraper.SearchConcurrency)
	fmt.Fprintf(w, "  max_actors/max_directors: %d/%d\n", cfg.Scraper.MaxActors, cfg.Scraper.MaxDirectors)
	fmt.Fprintf(w, "  logging: %s (%s)\n", cfg.Logging.Level, cfg.Logging.Format)
}

// formatProxy 隐藏代理地址里的密码。
func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

func orDash(v domain.Opt[string]) string {
	if s, ok := v.Get(); ok && s != "" {
		return s
	}
	return "-"
}

func intOrDash(v domain.Opt[int]) string {
	if n, ok := v.Get(); ok {
		return fmt.Sprint(n)
	}
	return "-"
}

func listOrDash(v []string) string {
	if len(v) == 0 {
		return "-"
	}
	return strings.Join(v, ", ")
}
