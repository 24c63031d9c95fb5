// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Modifier codes.
const (
	modString   = "s"
	modBool     = "b"
	modInt      = "i"
	modSigned   = "d"
	modUnsigned = "u"
	modFloat    = "f"
	modDate     = "D"
	modDateTime = "t"
	// modTimestamp is a synonym of modDateTime.
	modTimestamp = "T"
	modName      = "n"
	modPreserve  = "p"
	modSet       = "S"
	modValues    = "V"
	modIf        = "if"
)

// format renders a single value with the given modifier, which may be empty.
func (p *Parser) format(v Value, mod string, st state) (string, state) {
	if s, ok := v.(Param); ok {
		v = String(s)
	}
	switch v := v.(type) {
	case Map:
		switch mod {
		case modSet:
			return p.formatSet(v, st)
		case modValues:
			return p.formatValues(v, st)
		case "":
			values := make(List, len(v))
			for i, pair := range v {
				values[i] = pair.Value
			}
			return p.formatList(values, mod, st)
		}
		return st.fail("Unexpected " + v.typeName())
	case List:
		if mod == modSet || mod == modValues {
			return st.fail("Unexpected " + v.typeName())
		}
		return p.formatList(v, mod, st)
	case Custom:
		sql, err := v.Renderer.RenderSQL(p.dialect, mod)
		if err != nil {
			return st.fail(err.Error())
		}
		return sql, st
	case Unsupported:
		return st.fail("Unexpected " + v.Type)
	}

	if mod == "" {
		return p.formatPlain(v), st
	}
	return p.formatScalar(v, mod, st)
}

// formatList renders every element with the same modifier.
func (p *Parser) formatList(l List, mod string, st state) (string, state) {
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i], st = p.format(v, mod, st)
	}
	return strings.Join(parts, ", "), st
}

// formatSet renders col1=v1, col2=v2.
func (p *Parser) formatSet(m Map, st state) (string, state) {
	var parts []string
	for _, pair := range m {
		ident, mod, ok := splitKey(pair)
		if !ok {
			continue
		}
		var sql string
		sql, st = p.format(pair.Value, mod, st)
		parts = append(parts, p.dialect.QuoteName(ident)+"="+sql)
	}
	return strings.Join(parts, ", "), st
}

// formatValues renders (col1, col2) VALUES (v1, v2).
func (p *Parser) formatValues(m Map, st state) (string, state) {
	var idents, values []string
	for _, pair := range m {
		ident, mod, ok := splitKey(pair)
		if !ok {
			continue
		}
		var sql string
		sql, st = p.format(pair.Value, mod, st)
		idents = append(idents, p.dialect.QuoteName(ident))
		values = append(values, sql)
	}
	return "(" + strings.Join(idents, ", ") + ") VALUES (" + strings.Join(values, ", ") + ")", st
}

// splitKey splits a key such as "name%s" into the column and its modifier.
// A modifier starting with "?" skips the pair when the value is null; ok is
// false for such a pair.
func splitKey(pair Pair) (ident, mod string, ok bool) {
	ident, mod, found := strings.Cut(pair.Key, "%")
	if !found {
		return ident, "", true
	}
	if strings.HasPrefix(mod, "?") {
		if _, isNull := pair.Value.(Null); isNull {
			return "", "", false
		}
		mod = mod[1:]
	}
	return ident, mod, true
}

// formatPlain renders a scalar without a modifier.
func (p *Parser) formatPlain(v Value) string {
	switch v := v.(type) {
	case String:
		return p.dialect.Escape(string(v), true)
	case Int, Float:
		return stringOf(v)
	case Bool:
		return p.boolean(bool(v))
	case Time:
		return time.Time(v).Format(p.formats.DateTime)
	}
	return p.formats.Null
}

// formatScalar renders a scalar under a modifier.
func (p *Parser) formatScalar(v Value, mod string, st state) (string, state) {
	// Null is coerced like any other scalar: '' for %s, 0 for numbers.
	switch mod {
	case modString:
		return p.dialect.Escape(stringOf(v), true), st
	case modBool:
		return p.boolean(truthy(v)), st
	case modInt, modSigned, modUnsigned:
		return strconv.FormatInt(intOf(v), 10), st
	case modFloat:
		return formatFloat(floatOf(v)), st
	case modDate:
		return p.formatTime(v, p.formats.Date, st)
	case modDateTime, modTimestamp:
		return p.formatTime(v, p.formats.DateTime, st)
	case modName:
		return p.dialect.QuoteName(stringOf(v)), st
	case modPreserve:
		return p.translate(stringOf(v), st)
	case modSet, modValues:
		return st.fail("Unexpected " + v.typeName())
	case modIf:
		return st.fail("The %" + mod + " is not allowed here")
	}
	return st.fail("Unknown modifier %" + mod)
}

func (p *Parser) formatTime(v Value, layout string, st state) (string, state) {
	if _, ok := v.(Null); ok {
		return p.formats.Null, st
	}
	t, ok := timeOf(v, p.location)
	if !ok {
		if s, isString := v.(String); isString {
			return st.fail(fmt.Sprintf("Invalid date %q", string(s)))
		}
		return st.fail("Unexpected " + v.typeName())
	}
	return t.Format(layout), st
}

func (p *Parser) boolean(b bool) string {
	if b {
		return p.formats.True
	}
	return p.formats.False
}
