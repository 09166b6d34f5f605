package proxycheck

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/John-Robertt/tomatoapi/internal/infra/httpx"
)

const (
	DefaultTarget      = "https://ipinfo.io/json"
	DefaultConcurrency = 8
)

// DefaultProxies 是内置的候选代理（host:port）。列表本身不保证可用，使用前应先 Working 过滤。
var DefaultProxies = []string{
	"91.107.247.115:4000",
	"34.81.113.225:3128",
	"144.49.99.17:8080",
	"144.49.99.190:8080",
	"186.121.235.66:8080",
	"91.202.72.105:8080",
	"192.141.196.129:8080",
	"147.139.189.38:8080",
}

// RandomProxy 从 list 中均匀随机取一个；list 为空时使用 DefaultProxies。
func RandomProxy(list []string) string {
	if len(list) == 0 {
		list = DefaultProxies
	}
	return list[rand.IntN(len(list))]
}

// Checker 通过代理请求 Target 来判断代理是否可用：HTTP 200 即可用。
type Checker struct {
	Target      string        // 为空时使用 DefaultTarget
	Timeout     time.Duration // 单个代理的探测超时；<=0 时使用 httpx.DefaultProbeTimeout
	Concurrency int           // 同时探测的代理数；<=0 时使用 DefaultConcurrency
	Log         zerolog.Logger
}

func (c Checker) target() string {
	if t := strings.TrimSpace(c.Target); t != "" {
		return t
	}
	return DefaultTarget
}

// Check 探测单个代理。超时、代理错误、连接失败与非 200 一律视为不可用，不返回错误。
func (c Checker) Check(ctx context.Context, proxy string) bool {
	ok, err := c.probe(ctx, proxy)
	if err != nil {
		c.Log.Debug().Str("proxy", proxy).Err(err).Msg("代理不可用")
		return false
	}
	return ok
}

func (c Checker) probe(ctx context.Context, proxy string) (bool, error) {
	client, err := httpx.NewProbeClient(proxy, c.Timeout)
	if err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.target(), nil)
	if err != nil {
		return false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return false, errors.New("探测返回 " + resp.Status)
	}
	return true, nil
}

// Working 并发探测 proxies，返回可用的子集（去重、按字典序排序）。
// 顺序不具备语义，只是为了输出稳定。
func (c Checker) Working(ctx context.Context, proxies []string) []string {
	limit := c.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	var (
		mu      sync.Mutex
		working = map[string]struct{}{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, p := range proxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g.Go(func() error {
			if !c.Check(gctx, p) {
				return nil
			}
			mu.Lock()
			working[p] = struct{}{}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // 任务本身不返回错误

	out := make([]string, 0, len(working))
	for p := range working {
		out = append(out, p)
	}
	slices.Sort(out)

	c.Log.Info().Int("candidates", len(proxies)).Int("working", len(out)).Msg("代理探测完成")
	return out
}
