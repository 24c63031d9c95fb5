// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package dialect holds the escaping, quoting and literal formatting services
// that a database backend supplies to the templating engine.
package dialect

import (
	"strings"
	"time"
)

// Dialect is the capability the template engine consumes. Implementations
// must be safe for concurrent use; the engine only reads from them.
type Dialect interface {
	// QuoteName delimits an identifier such as a table or column name.
	QuoteName(ident string) string
	// Escape escapes a string value. When quoted is true the result is a
	// complete SQL string literal.
	Escape(value string, quoted bool) string
	// Formats returns the literal format table of the dialect.
	Formats() Formats
}

// Formats describes how booleans, NULL and dates are written as SQL.
// Date and DateTime are time layouts, see [time.Layout]; the surrounding
// quotes are part of the layout.
type Formats struct {
	True     string
	False    string
	Null     string
	Date     string
	DateTime string
	// Location is used to render numeric timestamps. If nil, UTC is used.
	Location *time.Location
}

// Renderer is implemented by values that supply their own SQL instead of
// being escaped by the engine, for example subqueries or expressions.
// The modifier is empty when the value was not preceded by one.
type Renderer interface {
	RenderSQL(d Dialect, modifier string) (string, error)
}

// ByName returns the dialect registered under name. Driver names accepted by
// database/sql are recognised too.
func ByName(name string) (Dialect, bool) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return SQLite{}, true
	case "mysql", "mariadb":
		return MySQL{}, true
	case "postgres", "postgresql", "pgx":
		return Postgres{}, true
	case "sqlserver", "mssql":
		return SQLServer{}, true
	}
	return nil, false
}

// quotePath quotes every dot separated part of ident with open and end,
// doubling end inside the part. A "*" part is left as is.
func quotePath(ident string, open, end string) string {
	parts := strings.Split(ident, ".")
	for i, part := range parts {
		if part == "*" {
			continue
		}
		parts[i] = open + strings.ReplaceAll(part, end, end+end) + end
	}
	return strings.Join(parts, ".")
}

// quoteLiteral doubles single quotes and optionally wraps the result.
func quoteLiteral(value string, quoted bool) string {
	value = strings.ReplaceAll(value, "'", "''")
	if quoted {
		return "'" + value + "'"
	}
	return value
}
