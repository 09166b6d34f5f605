package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/John-Robertt/tomatoapi/internal/infra/httpx"
	"github.com/John-Robertt/tomatoapi/internal/logger"
	"github.com/John-Robertt/tomatoapi/internal/provider/rottentomatoes"
	"github.com/John-Robertt/tomatoapi/internal/proxycheck"
)

const (
	// ErrCodeNotFound 表示显式指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// EnvPrefix 是环境变量前缀：scraper.proxy_url 对应 TOMATOAPI_SCRAPER_PROXY_URL。
	EnvPrefix = "TOMATOAPI"

	DefaultSearchConcurrency = 4
	maxConcurrency           = 32
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Scraper ScraperConfig `mapstructure:"scraper"`
	Proxies ProxiesConfig `mapstructure:"proxies"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr 返回 echo 监听地址。
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Logger 转换为 logger.Config。
func (l LoggingConfig) Logger() logger.Config {
	return logger.Config{
		Level:      l.Level,
		Format:     l.Format,
		Path:       l.Path,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		MaxAgeDays: l.MaxAgeDays,
		Compress:   l.Compress,
	}
}

type ScraperConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	ProxyURL          string        `mapstructure:"proxy_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxActors         int           `mapstructure:"max_actors"`
	MaxDirectors      int           `mapstructure:"max_directors"`
	SearchConcurrency int           `mapstructure:"search_concurrency"`
}

type ProxiesConfig struct {
	Target      string        `mapstructure:"target"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Concurrency int           `mapstructure:"concurrency"`
	List        []string      `mapstructure:"list"`
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			if e.Path == "" {
				return fmt.Sprintf("%s：%v", e.Code, e.Err)
			}
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Binding 把一个 CLI flag 绑定到配置键上：flag 被显式设置时覆盖文件与环境变量。
type Binding struct {
	Key  string
	Flag *pflag.Flag
}

// Load 读取配置并做校验与最小规范化。
//
// 优先级（固定）：显式 flag > 环境变量 TOMATOAPI_* > 配置文件 > 默认值。
//
// 发现规则：
// - path 非空：必须存在，否则 config_not_found
// - path 为空：依次在 . 与 $HOME/.tomatoapi 查找 config.{yaml,json,toml}，找不到不报错
func Load(path string, bindings ...Binding) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	path = strings.TrimSpace(path)
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return nil, &Error{Code: ErrCodeNotFound, Path: path, Err: err}
			}
			return nil, &Error{Code: ErrCodeInvalid, Path: path, Err: err}
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.tomatoapi")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, b := range bindings {
		if b.Flag == nil {
			continue
		}
		if err := v.BindPFlag(b.Key, b.Flag); err != nil {
			return nil, &Error{Code: ErrCodeInvalid, Err: fmt.Errorf("绑定 flag %q 失败：%w", b.Key, err)}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, &Error{Code: ErrCodeInvalid, Path: path, Err: err}
		}
	}
	used := v.ConfigFileUsed()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, &Error{Code: ErrCodeInvalid, Path: used, Err: err}
	}
	if err := cfg.normalize(); err != nil {
		return nil, &Error{Code: ErrCodeInvalid, Path: used, Err: err}
	}
	return cfg, nil
}

// Default 返回只包含默认值的配置（不读文件与环境变量）。
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	_ = cfg.normalize()
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)

	v.SetDefault("scraper.base_url", rottentomatoes.DefaultBaseURL)
	v.SetDefault("scraper.proxy_url", "")
	v.SetDefault("scraper.timeout", httpx.DefaultTimeout)
	v.SetDefault("scraper.max_actors", rottentomatoes.DefaultMaxActors)
	v.SetDefault("scraper.max_directors", rottentomatoes.DefaultMaxDirectors)
	v.SetDefault("scraper.search_concurrency", DefaultSearchConcurrency)

	v.SetDefault("proxies.target", proxycheck.DefaultTarget)
	v.SetDefault("proxies.timeout", httpx.DefaultProbeTimeout)
	v.SetDefault("proxies.concurrency", proxycheck.DefaultConcurrency)
	v.SetDefault("proxies.list", proxycheck.DefaultProxies)
}

func (c *Config) normalize() error {
	c.Server.Host = strings.TrimSpace(c.Server.Host)
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port 超出范围：%d", c.Server.Port)
	}

	if !logger.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level 无效：%q", c.Logging.Level)
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format 只能是 console 或 json，实际是 %q", c.Logging.Format)
	}

	base := strings.TrimRight(strings.TrimSpace(c.Scraper.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("scraper.base_url 无效：%q", c.Scraper.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scraper.base_url 必须是 http/https：%q", c.Scraper.BaseURL)
	}
	c.Scraper.BaseURL = base

	c.Scraper.ProxyURL = strings.TrimSpace(c.Scraper.ProxyURL)
	if c.Scraper.ProxyURL != "" {
		if _, err := httpx.ProxyURL(c.Scraper.ProxyURL); err != nil {
			return fmt.Errorf("scraper.proxy_url 无效：%w", err)
		}
	}
	if c.Scraper.Timeout <= 0 {
		c.Scraper.Timeout = httpx.DefaultTimeout
	}
	if c.Scraper.MaxActors <= 0 {
		return fmt.Errorf("scraper.max_actors 必须大于 0，实际是 %d", c.Scraper.MaxActors)
	}
	if c.Scraper.MaxDirectors <= 0 {
		return fmt.Errorf("scraper.max_directors 必须大于 0，实际是 %d", c.Scraper.MaxDirectors)
	}
	c.Scraper.SearchConcurrency = clamp(c.Scraper.SearchConcurrency, DefaultSearchConcurrency)

	if strings.TrimSpace(c.Proxies.Target) == "" {
		c.Proxies.Target = proxycheck.DefaultTarget
	}
	if c.Proxies.Timeout <= 0 {
		c.Proxies.Timeout = httpx.DefaultProbeTimeout
	}
	c.Proxies.Concurrency = clamp(c.Proxies.Concurrency, proxycheck.DefaultConcurrency)

	list := make([]string, 0, len(c.Proxies.List))
	for _, p := range c.Proxies.List {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}
	c.Proxies.List = list
	return nil
}

// clamp：0 取默认值；范围 [1, 32]，超出截断。
func clamp(n, def int) int {
	if n == 0 {
		n = def
	}
	if n < 1 {
		n = 1
	}
	if n > maxConcurrency {
		n = maxConcurrency
	}
	return n
}
