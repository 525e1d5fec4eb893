package sqlgate

import "strings"

// MultiStatementMessage is reported when the text holds more than one
// statement.
const MultiStatementMessage = "You can only execute one statement at a time."

// SingleStatement reports whether query holds at most one statement. Text
// after the first terminating ';' may only be whitespace, comments or
// further terminators. Semicolons inside quoted strings, quoted
// identifiers and comments do not terminate a statement.
func SingleStatement(query string) bool {
	end := statementEnd(query)
	if end < 0 {
		return true
	}
	return isBlankTail(query[end+1:])
}

// statementEnd returns the index of the first ';' that ends a statement,
// or -1.
func statementEnd(query string) int {
	for i := 0; i < len(query); i++ {
		switch c := query[i]; c {
		case ';':
			return i
		case '\'', '"', '`':
			i = skipUntil(query, i+1, string(c))
		case '[':
			i = skipUntil(query, i+1, "]")
		case '-':
			if strings.HasPrefix(query[i:], "--") {
				i = skipUntil(query, i+2, "\n")
			}
		case '/':
			if strings.HasPrefix(query[i:], "/*") {
				i = skipUntil(query, i+2, "*/")
			}
		}
	}
	return -1
}

// skipUntil returns the index of the last byte of the first closer at or
// after from, or len(query) when it never appears. A doubled quote inside a
// quoted string is found as two closers in a row, which leaves the scan
// inside the literal.
func skipUntil(query string, from int, closer string) int {
	if from > len(query) {
		return len(query)
	}
	j := strings.Index(query[from:], closer)
	if j < 0 {
		return len(query)
	}
	return from + j + len(closer) - 1
}

func isBlankTail(tail string) bool {
	for i := 0; i < len(tail); i++ {
		switch c := tail[i]; {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == ';':
		case strings.HasPrefix(tail[i:], "--"):
			i = skipUntil(tail, i+2, "\n")
		case strings.HasPrefix(tail[i:], "/*"):
			i = skipUntil(tail, i+2, "*/")
		default:
			return false
		}
	}
	return true
}
