// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

const (
	commentOpen  = "/*"
	commentClose = "*/"
	// ellipsis replaces values inside a disabled conditional section.
	ellipsis = "..."
)

// state is the scanner state threaded through one parse pass. It is passed
// and returned by value; every transition produces a new state.
type state struct {
	// depth is the number of conditional sections currently open.
	depth int
	// commentDepth is the depth at which the open comment started, or 0 if
	// no comment is open. We maintain commentDepth <= depth.
	commentDepth int
	// modifier is the pending modifier for the next argument.
	modifier string
	// problems lists every error found so far, in order.
	problems []string
}

func (s state) inComment() bool {
	return s.commentDepth > 0
}

// fail records a problem and returns the marker written in its place.
func (s state) fail(problem string) (string, state) {
	s.problems = append(s.problems[:len(s.problems):len(s.problems)], problem)
	return "**" + problem + "**", s
}

// openIf enters a conditional section. A disabled section opens a comment
// unless one is already open.
func (s state) openIf(enabled bool) (string, state) {
	s.depth++
	if !enabled && !s.inComment() {
		s.commentDepth = s.depth
		return commentOpen, s
	}
	return "", s
}

// condition handles the %else and %end tokens.
func (s state) condition(word string) (string, state) {
	if s.depth == 0 {
		return s.fail("Unexpected condition %" + word)
	}

	if word == "end" {
		s.depth--
		if s.commentDepth == s.depth+1 {
			s.commentDepth = 0
			return commentClose, s
		}
		return "", s
	}

	switch {
	case s.commentDepth == s.depth:
		s.commentDepth = 0
		return commentClose, s
	case !s.inComment():
		s.commentDepth = s.depth
		return commentOpen, s
	}
	// The comment was opened by an enclosing section.
	return "", s
}
