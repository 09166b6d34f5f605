package rottentomatoes

import (
	"bytes"
	"encoding/json"
)

// ldMovie 是 ld+json（schema.org Movie）中用到的字段。
// schema.org 允许同一字段是单值也可以是数组，所以用 oneOrMany 兼容两种写法。
type ldMovie struct {
	Type     oneOrMany[string]   `json:"@type"`
	Name     string              `json:"name"`
	Genre    oneOrMany[string]   `json:"genre"`
	Director oneOrMany[ldPerson] `json:"director"`
	Image    ldImage             `json:"image"`
	URL      string              `json:"url"`
}

func (m ldMovie) isMovie() bool {
	for _, t := range m.Type {
		if t == "Movie" {
			return true
		}
	}
	return false
}

type ldPerson struct {
	Name   string `json:"name"`
	SameAs string `json:"sameAs"`
	URL    string `json:"url"`
}

// UnmarshalJSON 兼容 "director": "Name" 这种纯字符串写法。
func (p *ldPerson) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = ldPerson{Name: s}
		return nil
	}
	type plain ldPerson
	var v plain
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*p = ldPerson(v)
	return nil
}

type oneOrMany[T any] []T

func (o *oneOrMany[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*o = nil
		return nil
	}
	if b[0] == '[' {
		var vs []T
		if err := json.Unmarshal(b, &vs); err != nil {
			return err
		}
		*o = vs
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = oneOrMany[T]{v}
	return nil
}

// ldImage 兼容 "image": "url"、{"url": "..."} 与数组（取第一个）。
type ldImage string

func (img *ldImage) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*img = ""
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*img = ldImage(s)
	case '{':
		var v struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*img = ldImage(v.URL)
	case '[':
		var vs []ldImage
		if err := json.Unmarshal(b, &vs); err != nil {
			return err
		}
		if len(vs) > 0 {
			*img = vs[0]
		}
	}
	return nil
}
