// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

import (
	"fmt"
	"time"

	"github.com/canonical/sqlfmt/dialect"
)

// Value is one part of a template. The set of implementations is closed.
//
// A String in the top level argument list is SQL text unless a modifier other
// than %p is pending, in which case it is a value like any other.
type Value interface {
	// typeName is used in error markers.
	typeName() string
}

// Null is the SQL NULL.
type Null struct{}

type Bool bool

type Int int64

type Float float64

type String string

// Param is a string that is always a value: it is never read as SQL text,
// even in the top level argument list.
type Param string

// Time is a point in time, rendered with the date formats of the dialect.
type Time time.Time

// List is a sequence of values rendered as a comma separated list.
type List []Value

// Pair is a keyed entry of a Map. The key holds a column name optionally
// followed by "%" and an inline modifier.
type Pair struct {
	Key   string
	Value Value
}

// Map is an associative array kept in insertion order.
type Map []Pair

// Custom is a value that renders its own SQL.
type Custom struct {
	Renderer dialect.Renderer
}

// Unsupported stands for a value that cannot be written as SQL. It always
// produces an error marker.
type Unsupported struct {
	Type string
}

func (Null) typeName() string { return "null" }
func (Bool) typeName() string { return "bool" }
func (Int) typeName() string { return "int" }
func (Float) typeName() string { return "float" }
func (String) typeName() string { return "string" }
func (Param) typeName() string { return "string" }
func (Time) typeName() string { return "time" }
func (List) typeName() string { return "list" }
func (Map) typeName() string { return "array" }
func (c Custom) typeName() string { return fmt.Sprintf("%T", c.Renderer) }
func (u Unsupported) typeName() string { return u.Type }

// truthy reports whether v enables a conditional section.
func truthy(v Value) bool {
	switch v := v.(type) {
	case Null:
		return false
	case Bool:
		return bool(v)
	case Int:
		return v != 0
	case Float:
		return v != 0
	case String:
		return v != "" && v != "0"
	case Param:
		return v != "" && v != "0"
	case Time:
		return !time.Time(v).IsZero()
	case List:
		return len(v) > 0
	case Map:
		return len(v) > 0
	}
	return true
}
