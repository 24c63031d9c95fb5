// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlfmt

import (
	"database/sql"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/canonical/sqlfmt/dialect"
	"github.com/canonical/sqlfmt/internal/expr"
)

var ErrNoRows = sql.ErrNoRows
var ErrTXDone = sql.ErrTxDone

// FormatError is returned when a template contains values that cannot be
// rendered. SQL holds the query as far as it could be rendered, with a marker
// in place of every such value.
type FormatError struct {
	SQL      string
	Problems []string
}

func (e *FormatError) Error() string {
	first := e.Problems[0]
	if r, size := utf8.DecodeRuneInString(first); r != utf8.RuneError {
		first = string(unicode.ToLower(r)) + first[size:]
	}
	msg := "cannot format SQL: " + first
	if n := len(e.Problems) - 1; n > 0 {
		msg += fmt.Sprintf(" (and %d more)", n)
	}
	return msg
}

// Translate renders a template into SQL for the dialect d.
//
// Strings at the top level are SQL text; any other argument is a value which
// is formatted according to the modifier ending the preceding text, such as
// %s, %i or %n. On failure the returned SQL is still complete, with markers
// in place of the values that could not be rendered, and the error is a
// *[FormatError].
func Translate(d dialect.Dialect, args ...any) (string, error) {
	return translate(expr.NewParser(d), args)
}

// MustTranslate is the same as [Translate] except that it panics on error.
func MustTranslate(d dialect.Dialect, args ...any) string {
	query, err := Translate(d, args...)
	if err != nil {
		panic(err)
	}
	return query
}

func translate(parser *expr.Parser, args []any) (string, error) {
	values := make([]expr.Value, len(args))
	for i, arg := range args {
		values[i] = valueOf(arg)
	}
	query, problems := parser.Parse(values)
	if len(problems) > 0 {
		return query, &FormatError{SQL: query, Problems: problems}
	}
	return query, nil
}

// quoteSummary shortens a query for log records.
func quoteSummary(query string) string {
	const maxLen = 200
	query = strings.Join(strings.Fields(query), " ")
	if len(query) <= maxLen {
		return query
	}
	return query[:maxLen] + "..."
}
