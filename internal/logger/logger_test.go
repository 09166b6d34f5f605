package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		" info ":  zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"loud":    zerolog.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "level=%q", in)
	}
	assert.True(t, ValidLevel(""))
	assert.True(t, ValidLevel("Warn"))
	assert.False(t, ValidLevel("loud"))
}

func TestNew_JSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "debug", Format: "json", Out: &buf})

	l.WithComponent("api").Debug().Str("name", "top gun").Msg("查询")

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "api", got["component"])
	assert.Equal(t, "top gun", got["name"])
	assert.Equal(t, "debug", got["level"])
	assert.Contains(t, got, "time")
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "warn", Format: "json", Out: &buf})

	l.Info().Msg("丢弃")
	assert.Zero(t, buf.Len())

	l.Warn().Msg("保留")
	assert.NotZero(t, buf.Len())
}

func TestNew_WritesRotatedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	var buf bytes.Buffer
	l := New(Config{Format: "json", Path: dir, Out: &buf})

	l.Info().Msg("hello")
	require.NoError(t, l.Close())

	b, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"message":"hello"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error().Msg("不会输出")
	assert.NoError(t, l.Close())
	assert.NoError(t, l.WithComponent("x").Close())
}
