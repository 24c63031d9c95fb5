/*
Package expr renders sqlfmt templates into SQL. It covers everything between
the list of template parts and the final SQL string; it does not interact with
databases.

A template is an ordered list of [Value]s. Strings at the top level are SQL
text, every other value is formatted for the target [dialect.Dialect]. Parsing
is a single pass split into three pieces.

# Dispatching

[Parser.Parse] walks the arguments. It owns the conditional sections opened by
%if, the modifier captured from the end of the previous SQL text and the list
of problems found so far. These live in a state value which is handed to the
tokenizer and the formatter and handed back, updated, by them.

# Tokenizing

SQL text is copied verbatim except for `identifiers`, [identifiers], 'strings'
and "strings", the %else and %end conditions, a trailing %xx modifier and
unmatched quotes. Strings inside a disabled conditional section become an
ellipsis.

# Formatting

Values are formatted according to the pending modifier. Lists are expanded
element by element; associative arrays become either a SET list or a VALUES
clause. Values that cannot be formatted are replaced by a **marker** and
recorded as problems, but parsing always continues to the end.
*/
package expr
