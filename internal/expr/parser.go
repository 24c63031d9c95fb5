// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

import (
	"strings"
	"time"

	"github.com/canonical/sqlfmt/dialect"
)

// Parser renders templates for one dialect. A Parser holds no per-call state
// and may be used concurrently.
type Parser struct {
	dialect  dialect.Dialect
	formats  dialect.Formats
	location *time.Location
}

func NewParser(d dialect.Dialect) *Parser {
	formats := d.Formats()
	loc := formats.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Parser{dialect: d, formats: formats, location: loc}
}

// Parse renders the template parts into a single SQL string. The returned
// problems are non-empty if anything could not be rendered; the SQL then
// carries a marker at the place of each problem.
func (p *Parser) Parse(args []Value) (sql string, problems []string) {
	var st state
	var command string
	var commandKnown bool

	parts := make([]string, 0, len(args))
	for _, arg := range args {
		// The argument after %if controls the conditional section.
		if st.modifier == modIf {
			st.modifier = ""
			var out string
			if out, st = st.openIf(truthy(arg)); out != "" {
				parts = append(parts, out)
			}
			continue
		}

		// Strings are SQL text, which may set a new modifier.
		if s, ok := arg.(String); ok && (st.modifier == "" || st.modifier == modPreserve) {
			st.modifier = ""
			var out string
			out, st = p.translate(string(s), st)
			parts = append(parts, out)
			continue
		}

		mod := st.modifier
		st.modifier = ""

		// An associative array without a modifier is either a SET list or a
		// VALUES clause depending on the command.
		if _, ok := arg.(Map); ok && mod == "" {
			if !commandKnown {
				command = commandOf(args)
				commandKnown = true
			}
			mod = modSet
			if command == "INSERT" || command == "REPLAC" {
				mod = modValues
			}
		}

		if st.inComment() {
			parts = append(parts, ellipsis)
			continue
		}
		var out string
		out, st = p.format(arg, mod, st)
		// A %p value may end with a modifier; it has nothing to apply to.
		st.modifier = ""
		parts = append(parts, out)
	}

	if st.inComment() {
		parts = append(parts, commentClose)
	}
	return strings.Join(parts, " "), st.problems
}

// commandOf returns the first six characters, upper cased, of the first SQL
// text in args.
func commandOf(args []Value) string {
	for _, arg := range args {
		s, ok := arg.(String)
		if !ok {
			continue
		}
		text := strings.TrimLeft(string(s), " \t\n\r\x00\x0b")
		if runes := []rune(text); len(runes) > 6 {
			text = string(runes[:6])
		}
		return strings.ToUpper(text)
	}
	return ""
}
