package domain

import (
	"bytes"
	"encoding/json"
)

// Opt 表示“可能缺失”的字段值。
//
// 约束：缺失（None）与零值（Some(0) / Some("")）必须可区分；
// 页面上没有的字段一律用 None 表示，不允许用看起来合法的默认值顶替。
type Opt[T any] struct {
	v  T
	ok bool
}

func Some[T any](v T) Opt[T] { return Opt[T]{v: v, ok: true} }

func None[T any]() Opt[T] { return Opt[T]{} }

// Get 返回值与“是否存在”。
func (o Opt[T]) Get() (T, bool) { return o.v, o.ok }

func (o Opt[T]) IsSet() bool { return o.ok }

// OrZero 在缺失时返回 T 的零值（仅用于展示，不要拿来做判断）。
func (o Opt[T]) OrZero() T { return o.v }

// MarshalJSON：缺失输出 null，存在输出值本身。
func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.v)
}

func (o *Opt[T]) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*o = Opt[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
