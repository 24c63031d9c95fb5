// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package dialect

import (
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
)

// Postgres is the dialect of PostgreSQL.
type Postgres struct{}

var postgresFormats = Formats{
	True:     "TRUE",
	False:    "FALSE",
	Null:     "NULL",
	Date:     "'2006-01-02'",
	DateTime: "'2006-01-02 15:04:05'",
}

func (Postgres) QuoteName(ident string) string {
	parts := strings.Split(ident, ".")
	if len(parts) > 1 && parts[len(parts)-1] == "*" {
		return pgx.Identifier(parts[:len(parts)-1]).Sanitize() + ".*"
	}
	if ident == "*" {
		return ident
	}
	return pgx.Identifier(parts).Sanitize()
}

// Escape assumes standard_conforming_strings is on. Quoted values containing
// backslashes are written as escape string constants.
func (Postgres) Escape(value string, quoted bool) string {
	if quoted {
		return strings.TrimLeft(pq.QuoteLiteral(value), " ")
	}
	return strings.ReplaceAll(value, "'", "''")
}

func (Postgres) Formats() Formats {
	return postgresFormats
}
