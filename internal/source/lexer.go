package source

import "strings"

// parenDelta returns the net change in bracket depth contributed by line,
// ignoring brackets that appear inside string literals.
func parenDelta(line string) int {
	delta := 0
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			delta++
		case ')', ']', '}':
			delta--
		case '#':
			return delta
		}
	}
	return delta
}

// stripComment removes a trailing "# ..." comment that is not inside a
// string literal, preserving everything before it verbatim.
func stripComment(line string) string {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '#':
			return line[:i]
		}
	}
	return line
}

// parseClassName extracts the class name from a (possibly base-class
// qualified) "class Name(...):" statement.
func parseClassName(trimmed string) (string, bool) {
	rest := strings.TrimPrefix(trimmed, "class ")
	rest = strings.TrimSpace(rest)
	end := len(rest)
	for i, c := range rest {
		if c == '(' || c == ':' {
			end = i
			break
		}
	}
	name := strings.TrimSpace(rest[:end])
	if name == "" {
		return "", false
	}
	return name, true
}

// parseDefSignature extracts the function name and formal parameter names
// (top-level commas only, defaults/annotations/*args/**kwargs stripped to
// their bare name) from a joined "def name(...):" or "async def
// name(...):" statement.
func parseDefSignature(text string) (name string, params []string, ok bool) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "async ")
	text = strings.TrimPrefix(text, "def ")
	open := strings.IndexByte(text, '(')
	if open < 0 {
		return "", nil, false
	}
	name = strings.TrimSpace(text[:open])
	if name == "" {
		return "", nil, false
	}

	close := matchingParen(text, open)
	if close < 0 {
		return "", nil, false
	}
	argsText := text[open+1 : close]
	params = splitArgs(argsText)
	return name, params, true
}

func matchingParen(s string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitArgs splits a parameter list on top-level commas and reduces each
// entry to its bare parameter name (stripping type annotations, defaults,
// and leading */** markers).
func splitArgs(s string) []string {
	var parts []string
	depth := 0
	var quote byte
	last := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	if last < len(s) {
		parts = append(parts, s[last:])
	}

	var names []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		p = strings.TrimLeft(p, "*")
		if idx := strings.IndexAny(p, ":="); idx >= 0 {
			p = p[:idx]
		}
		p = strings.TrimSpace(p)
		if p != "" {
			names = append(names, p)
		}
	}
	return names
}
