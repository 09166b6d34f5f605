package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName 是 Path 非空时写入的日志文件名。
const FileName = "tomatoapi.log"

// Logger 包装 zerolog；配置了 Path 时同时写入按大小轮转的日志文件。
type Logger struct {
	zerolog.Logger
	rotator *lumberjack.Logger
}

// Config 是日志配置。
type Config struct {
	Level      string // trace/debug/info/warn/error
	Format     string // "console" 或 "json"
	Path       string // 日志目录；为空时只写 Out
	MaxSizeMB  int    // 单个文件上限（默认 10）
	MaxBackups int    // 保留的旧文件数（默认 5）
	MaxAgeDays int    // 旧文件保留天数（默认 30）
	Compress   bool

	// Out 为空时使用 os.Stderr（stdout 留给 CLI 的 JSON 输出）。
	Out io.Writer
}

// New 按配置构造 logger。日志目录创建失败时退化为只写 Out。
func New(cfg Config) *Logger {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}

	var console io.Writer = out
	if !strings.EqualFold(strings.TrimSpace(cfg.Format), "json") {
		console = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	output := console
	var rotator *lumberjack.Logger
	if p := strings.TrimSpace(cfg.Path); p != "" {
		if err := os.MkdirAll(p, 0o755); err == nil {
			rotator = &lumberjack.Logger{
				Filename:   filepath.Join(p, FileName),
				MaxSize:    orDefault(cfg.MaxSizeMB, 10),
				MaxBackups: orDefault(cfg.MaxBackups, 5),
				MaxAge:     orDefault(cfg.MaxAgeDays, 30),
				Compress:   cfg.Compress,
				LocalTime:  true,
			}
			output = io.MultiWriter(console, rotator)
		}
	}

	zl := zerolog.New(output).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
	return &Logger{Logger: zl, rotator: rotator}
}

// Nop 返回丢弃所有输出的 logger（测试与库调用方默认值）。
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// Close 关闭日志文件（如果有）。
func (l *Logger) Close() error {
	if l == nil || l.rotator == nil {
		return nil
	}
	return l.rotator.Close()
}

// ParseLevel 把配置里的级别字符串转换为 zerolog.Level；未知值按 info 处理。
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// ValidLevel 报告 level 是否为可识别的级别名（空串视为默认值，合法）。
func ValidLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	}
	return false
}

// WithComponent 返回带 component 字段的子 logger。
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With().Str("component", component).Logger()}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
