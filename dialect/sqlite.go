// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package dialect

// SQLite is the dialect of SQLite and dqlite.
type SQLite struct{}

var sqliteFormats = Formats{
	True:     "1",
	False:    "0",
	Null:     "NULL",
	Date:     "'2006-01-02'",
	DateTime: "'2006-01-02 15:04:05'",
}

func (SQLite) QuoteName(ident string) string {
	return quotePath(ident, `"`, `"`)
}

func (SQLite) Escape(value string, quoted bool) string {
	return quoteLiteral(value, quoted)
}

func (SQLite) Formats() Formats {
	return sqliteFormats
}
