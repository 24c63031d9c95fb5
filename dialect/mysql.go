// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package dialect

import "strings"

// MySQL is the dialect of MySQL and MariaDB servers running without the
// NO_BACKSLASH_ESCAPES SQL mode.
type MySQL struct{}

var mysqlFormats = Formats{
	True:     "1",
	False:    "0",
	Null:     "NULL",
	Date:     "'2006-01-02'",
	DateTime: "'2006-01-02 15:04:05'",
}

// mysqlEscaper mirrors the replacements done by mysql_real_escape_string.
var mysqlEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"\x00", "\\0",
	"\n", "\\n",
	"\r", "\\r",
	"'", "\\'",
	`"`, `\"`,
	"\x1a", "\\Z",
)

func (MySQL) QuoteName(ident string) string {
	return quotePath(ident, "`", "`")
}

func (MySQL) Escape(value string, quoted bool) string {
	value = mysqlEscaper.Replace(value)
	if quoted {
		return "'" + value + "'"
	}
	return value
}

func (MySQL) Formats() Formats {
	return mysqlFormats
}
