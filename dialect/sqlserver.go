// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package dialect

// SQLServer is the dialect of Microsoft SQL Server. Quoted strings are
// written as Unicode literals.
type SQLServer struct{}

var sqlserverFormats = Formats{
	True:     "1",
	False:    "0",
	Null:     "NULL",
	Date:     "'20060102'",
	DateTime: "'2006-01-02T15:04:05'",
}

func (SQLServer) QuoteName(ident string) string {
	return quotePath(ident, "[", "]")
}

func (SQLServer) Escape(value string, quoted bool) string {
	if quoted {
		return "N" + quoteLiteral(value, true)
	}
	return quoteLiteral(value, false)
}

func (SQLServer) Formats() Formats {
	return sqlserverFormats
}
