// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

import (
	"strings"
)

// triggerChars are the bytes that can start a token. Text without any of
// them is returned unchanged.
const triggerChars = "`['\"%"

type tokenKind int

const (
	identToken tokenKind = iota
	stringToken
	conditionToken
	modifierToken
	loneQuoteToken
)

// token is a match found in literal SQL text.
type token struct {
	kind tokenKind
	// text is the identifier, the unescaped string, the condition word or
	// the modifier code.
	text string
	// end is the position just past the token.
	end int
}

// translate scans one fragment of literal SQL, replacing identifiers, quoted
// strings, conditions and a trailing modifier. Everything else is copied.
func (p *Parser) translate(text string, st state) (string, state) {
	pos := strings.IndexAny(text, triggerChars)
	if pos < 0 {
		return text, st
	}

	var b strings.Builder
	b.WriteString(text[:pos])
	for pos < len(text) {
		next := strings.IndexAny(text[pos:], triggerChars)
		if next < 0 {
			b.WriteString(text[pos:])
			break
		}
		b.WriteString(text[pos : pos+next])
		pos += next

		tok, ok := scanToken(text, pos)
		if !ok {
			b.WriteByte(text[pos])
			pos++
			continue
		}
		var out string
		out, st = p.replace(tok, st)
		b.WriteString(out)
		pos = tok.end
	}
	return b.String(), st
}

// replace returns the SQL written in place of the token.
func (p *Parser) replace(tok token, st state) (string, state) {
	switch tok.kind {
	case identToken:
		return p.dialect.QuoteName(tok.text), st
	case stringToken:
		if st.inComment() {
			return ellipsis, st
		}
		return p.dialect.Escape(tok.text, true), st
	case conditionToken:
		return st.condition(tok.text)
	case modifierToken:
		st.modifier = tok.text
		return "", st
	case loneQuoteToken:
		return st.fail("Alone quote")
	}
	panic("internal error: unknown token kind")
}

// scanToken tries, in order, every token that can start at text[pos].
func scanToken(text string, pos int) (token, bool) {
	switch c := text[pos]; c {
	case '`':
		return scanDelimited(text, pos, '`')
	case '[':
		return scanDelimited(text, pos, ']')
	case '\'', '"':
		if tok, ok := scanQuoted(text, pos, c); ok {
			return tok, true
		}
		return token{kind: loneQuoteToken, end: pos + 1}, true
	case '%':
		rest := text[pos+1:]
		for _, word := range []string{"else", "end"} {
			if strings.HasPrefix(rest, word) {
				return token{kind: conditionToken, text: word, end: pos + 1 + len(word)}, true
			}
		}
		if mod, ok := trailingModifier(rest); ok {
			return token{kind: modifierToken, text: mod, end: pos + 1 + len(mod)}, true
		}
	}
	return token{}, false
}

// scanDelimited matches an identifier of at least one character between
// text[pos] and the next delim byte.
func scanDelimited(text string, pos int, delim byte) (token, bool) {
	if pos+2 > len(text) {
		return token{}, false
	}
	i := strings.IndexByte(text[pos+2:], delim)
	if i < 0 {
		return token{}, false
	}
	end := pos + 2 + i
	return token{kind: identToken, text: text[pos+1 : end], end: end + 1}, true
}

// scanQuoted matches a string literal in which the quote is escaped by
// doubling it. If the literal is never closed, the quote of the last doubled
// pair closes it instead.
func scanQuoted(text string, pos int, quote byte) (token, bool) {
	lastPair := -1
	i := pos + 1
	for i < len(text) {
		if text[i] != quote {
			i++
			continue
		}
		if i+1 < len(text) && text[i+1] == quote {
			lastPair = i
			i += 2
			continue
		}
		return quotedToken(text, pos, i, quote), true
	}
	if lastPair < 0 {
		return token{}, false
	}
	return quotedToken(text, pos, lastPair, quote), true
}

func quotedToken(text string, start, end int, quote byte) token {
	q := string(quote)
	return token{
		kind: stringToken,
		text: strings.ReplaceAll(text[start+1:end], q+q, q),
		end:  end + 1,
	}
}

// trailingModifier matches one or two ASCII letters at the very end of the
// fragment, optionally followed by a single final newline.
func trailingModifier(rest string) (string, bool) {
	letters := strings.TrimSuffix(rest, "\n")
	if len(letters) < 1 || len(letters) > 2 {
		return "", false
	}
	for i := 0; i < len(letters); i++ {
		if c := letters[i] | 0x20; c < 'a' || c > 'z' {
			return "", false
		}
	}
	return letters, true
}
