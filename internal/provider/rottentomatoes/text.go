package rottentomatoes

import (
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }

func normList(in []string) []string {
	m := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = normSpace(s)
		if s == "" {
			continue
		}
		if _, ok := m[s]; ok {
			continue
		}
		m[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// leadingInt 解析文本开头的整数（允许千分位逗号），例如 "1,234 Reviews" => 1234。
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		if r == ',' && b.Len() > 0 {
			continue
		}
		break
	}
	if b.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, false
	}
	return n, true
}

// parsePercent 解析 "96%" 这类分数；"--"、空串或越界视为缺失。
func parsePercent(s string) (int, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 100 {
		return 0, false
	}
	return n, true
}

// releaseYear 取发行日期字符串第一个逗号之后的部分（"May 27, 2022" => "2022"）。
// 结果必须是 4 位数字，否则视为缺失。
func releaseYear(date string) (string, bool) {
	i := strings.Index(date, ",")
	if i < 0 {
		return "", false
	}
	fs := strings.Fields(date[i+1:])
	if len(fs) == 0 {
		return "", false
	}
	y := strings.TrimRight(fs[0], ",.")
	if len(y) != 4 {
		return "", false
	}
	for _, r := range y {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return y, true
}

// DirectorName 从人物主页路径推导展示名：取最后一段路径，
// 下划线/连字符替换为空格，再按单词首字母大写。
//
//	https://www.rottentomatoes.com/celebrity/joseph_kosinski => Joseph Kosinski
//	Joseph-Kosinski                                          => Joseph Kosinski
func DirectorName(profile string) string {
	p := strings.TrimSpace(profile)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	if u, err := url.PathUnescape(p); err == nil {
		p = u
	}
	p = strings.NewReplacer("_", " ", "-", " ").Replace(p)
	p = normSpace(p)
	if p == "" {
		return ""
	}
	// Caser 有内部状态，不能跨 goroutine 共享。
	return cases.Title(language.English).String(p)
}
