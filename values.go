// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlfmt

import (
	"database/sql/driver"
	"fmt"
	"math"
	"reflect"
	"sort"
	"time"

	"github.com/canonical/sqlfmt/dialect"
	"github.com/canonical/sqlfmt/internal/expr"
)

// M is an associative array. Its pairs are rendered in key order; use
// [Pairs] when the order of the columns matters.
//
// Example:
//
//	sqlfmt.Translate(d, "UPDATE people SET", sqlfmt.M{"name": "Fred", "age%i": "30"}, "WHERE id = %i", 10)
//	// UPDATE people SET "age"=30, "name"='Fred' WHERE id =  10
type M map[string]any

// Pair is one entry of [Pairs].
type Pair struct {
	Key   string
	Value any
}

// Pairs is an associative array that keeps its order.
type Pairs []Pair

// Raw is SQL written verbatim into the query, without escaping.
type Raw string

func (r Raw) RenderSQL(dialect.Dialect, string) (string, error) {
	return string(r), nil
}

// Sub returns a value rendering the template args with the same dialect as
// the query it is used in.
func Sub(args ...any) dialect.Renderer {
	return subquery(args)
}

type subquery []any

func (s subquery) RenderSQL(d dialect.Dialect, _ string) (string, error) {
	return Translate(d, s...)
}

// valueOf converts a Go value into a template value.
func valueOf(arg any) expr.Value {
	if arg == nil {
		return expr.Null{}
	}
	rv := reflect.ValueOf(arg)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return expr.Null{}
	}

	switch v := arg.(type) {
	case dialect.Renderer:
		return expr.Custom{Renderer: v}
	case string:
		return expr.String(v)
	case []byte:
		return expr.Param(v)
	case bool:
		return expr.Bool(v)
	case time.Time:
		return expr.Time(v)
	case M:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := make(expr.Map, len(keys))
		for i, k := range keys {
			m[i] = expr.Pair{Key: k, Value: valueOf(v[k])}
		}
		return m
	case Pairs:
		m := make(expr.Map, len(v))
		for i, pair := range v {
			m[i] = expr.Pair{Key: pair.Key, Value: valueOf(pair.Value)}
		}
		return m
	case driver.Valuer:
		dv, err := v.Value()
		if err != nil {
			return expr.Unsupported{Type: fmt.Sprintf("%T (%s)", arg, err)}
		}
		return param(valueOf(dv))
	}

	switch rv.Kind() {
	case reflect.Pointer:
		return param(valueOf(rv.Elem().Interface()))
	case reflect.Bool:
		return expr.Bool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return expr.Int(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if u := rv.Uint(); u > math.MaxInt64 {
			return expr.Float(u)
		}
		return expr.Int(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return expr.Float(rv.Float())
	case reflect.String:
		return expr.Param(rv.String())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return expr.Param(rv.Bytes())
		}
		l := make(expr.List, rv.Len())
		for i := range l {
			l[i] = valueOf(rv.Index(i).Interface())
		}
		return l
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		m := make(expr.Map, len(keys))
		for i, k := range keys {
			m[i] = expr.Pair{Key: k.String(), Value: valueOf(rv.MapIndex(k).Interface())}
		}
		return m
	}
	return expr.Unsupported{Type: fmt.Sprintf("%T", arg)}
}

// param turns a string found behind a pointer or a driver.Valuer into a
// value. Only a plain string is SQL text.
func param(v expr.Value) expr.Value {
	if s, ok := v.(expr.String); ok {
		return expr.Param(s)
	}
	return v
}
