/*
Package sqlfmt builds SQL queries from templates mixing SQL text and Go values.

A template is a list of arguments. Arguments of type string are SQL text and
are copied to the query; every other argument, including []byte, pointers to
strings and driver.Valuer results, is a value escaped for the target database. A
modifier at the end of the text preceding a value says how to format it:

	sqlfmt.Translate(dialect.MySQL{}, "SELECT * FROM [users] WHERE name = %s", "O'Neil")
	// SELECT * FROM `users` WHERE name =  'O\'Neil'

Strings after a modifier are values too. Identifiers written as [name] or
`name` and string literals inside the text are re-quoted for the dialect.

# Modifiers

	%s   string
	%b   boolean
	%i   integer (%u and %d are synonyms)
	%f   float
	%D   date, or NULL
	%t   date and time, or NULL (%T is a synonym)
	%n   identifier
	%p   SQL text, parsed like the template itself
	%S   associative array as a SET list: col=value, ...
	%V   associative array as a VALUES clause: (col, ...) VALUES (value, ...)

Without a modifier a value is formatted according to its type. An associative
array ([M], [Pairs] or any map with string keys) is a VALUES clause in INSERT
and REPLACE statements and a SET list elsewhere. Its keys may carry a modifier
themselves, as in "age%i"; a key such as "email%?s" skips the pair when the
value is nil. Slices format each element, separated by commas.

A nil value without a modifier is NULL. Under %s, %i or %f it is coerced like
any other scalar, to '' or 0.

# Conditions

"%if" at the end of the text makes the next argument a condition. When it is
false, the following text up to "%else" or "%end" is commented out and values
within it are replaced by an ellipsis:

	sqlfmt.Translate(d, "SELECT * FROM t %if", onlyActive, "WHERE active = %b", true, "%end")

# Errors

Values that cannot be formatted do not stop the rendering. They are replaced
by a marker such as **Unknown modifier %z** and reported together in a
[FormatError], which carries the rendered SQL.

# Databases

[DB] wraps a [database/sql.DB] to render and run templates in one call, with
prepared statements cached by SQL and optional logging through [log/slog].
[Open] builds one from a [Config], which can be loaded from YAML.
*/
package sqlfmt
