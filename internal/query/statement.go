package query

import (
	"errors"
	"strings"
)

// ErrEmptyStatement is returned by Parse for blank statement text.
var ErrEmptyStatement = errors.New("statement is empty")

// segment is a run of literal SQL followed by an optional placeholder.
type segment struct {
	text  string
	param string
}

// Statement is parsed SQL text with named placeholders. It is immutable and
// safe for concurrent use.
type Statement struct {
	text     string
	segments []segment
	names    []string
}

// Parse splits text into literal SQL and :name placeholders.
//
// Placeholders are not recognized inside single-quoted strings,
// double-quoted or bracketed identifiers, backtick identifiers, line
// comments or block comments. A double colon (the postgres cast operator)
// is literal text.
//
// Parse treats [...] as a quoted identifier, as sqlite and sqlserver do. Use
// ParseDialect when the target database is known.
func Parse(text string) (*Statement, error) {
	return parse(text, true)
}

// ParseDialect is Parse for a statement that runs on a database of dialect
// d. Under DialectDollar (postgres) brackets are array constructors and
// subscripts, so placeholders inside them are recognized.
func ParseDialect(text string, d Dialect) (*Statement, error) {
	return parse(text, d != DialectDollar)
}

func parse(text string, brackets bool) (*Statement, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyStatement
	}

	st := &Statement{text: text}
	seen := make(map[string]bool)

	var lit strings.Builder
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			end := skipQuoted(text, i, c)
			lit.WriteString(text[i:end])
			i = end

		case c == '[' && brackets:
			end := strings.IndexByte(text[i:], ']')
			if end < 0 {
				end = len(text) - i - 1
			}
			lit.WriteString(text[i : i+end+1])
			i += end + 1

		case c == '-' && i+1 < len(text) && text[i+1] == '-':
			end := strings.IndexByte(text[i:], '\n')
			if end < 0 {
				end = len(text) - i
			}
			lit.WriteString(text[i : i+end])
			i += end

		case c == '/' && i+1 < len(text) && text[i+1] == '*':
			end := strings.Index(text[i+2:], "*/")
			stop := len(text)
			if end >= 0 {
				stop = i + 2 + end + 2
			}
			lit.WriteString(text[i:stop])
			i = stop

		case c == ':' && i+1 < len(text) && text[i+1] == ':':
			lit.WriteString("::")
			i += 2

		case c == ':' && i+1 < len(text) && isIdentStart(text[i+1]):
			j := i + 1
			for j < len(text) && isIdentPart(text[j]) {
				j++
			}
			name := text[i+1 : j]
			st.segments = append(st.segments, segment{text: lit.String(), param: name})
			lit.Reset()
			if !seen[name] {
				seen[name] = true
				st.names = append(st.names, name)
			}
			i = j

		default:
			lit.WriteByte(c)
			i++
		}
	}

	if lit.Len() > 0 {
		st.segments = append(st.segments, segment{text: lit.String()})
	}

	return st, nil
}

// MustParse is Parse for statements known to be valid; it panics on error.
func MustParse(text string) *Statement {
	st, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return st
}

// Text returns the statement as written.
func (s *Statement) Text() string {
	return s.text
}

// Names returns the distinct placeholder names in order of first appearance.
func (s *Statement) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// skipQuoted returns the index just past the quoted run starting at start.
// A doubled quote character inside the run is an escaped quote.
func skipQuoted(text string, start int, quote byte) int {
	i := start + 1
	for i < len(text) {
		if text[i] == quote {
			if i+1 < len(text) && text[i+1] == quote {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return len(text)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
