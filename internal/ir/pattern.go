package ir

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Pattern matches identifiers. Two syntaxes are supported:
//
//   - globs: `*` matches within one component, `**` crosses slashes (and
//     `/**/` also matches a single slash), `?` matches one non-slash
//     character, `{a,b}` matches either alternative, `\` escapes
//   - regular expressions, prefixed with `regexp:`
//
// Globs are anchored at both ends; regular expressions are not.
type Pattern struct {
	source string
	re     *regexp.Regexp
}

// CompilePattern parses a glob or `regexp:` pattern.
func CompilePattern(s string) (Pattern, error) {
	if rest, ok := strings.CutPrefix(s, "regexp:"); ok {
		re, err := regexp.Compile(rest)
		if err != nil {
			return Pattern{}, fmt.Errorf("pattern %q: %w", s, err)
		}
		return Pattern{source: s, re: re}, nil
	}

	expr, err := globToRegexp(s)
	if err != nil {
		return Pattern{}, fmt.Errorf("pattern %q: %w", s, err)
	}
	return Pattern{source: s, re: regexp.MustCompile(expr)}, nil
}

// MustCompilePattern is like CompilePattern but panics on error.
func MustCompilePattern(s string) Pattern {
	p, err := CompilePattern(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Match reports whether id matches the pattern.
func (p Pattern) Match(id Identifier) bool {
	return p.re != nil && p.re.MatchString(string(id))
}

// String returns the source of the pattern.
func (p Pattern) String() string {
	return p.source
}

const eof rune = -1

type globParser struct {
	src string
	pos int
	// width of the last rune read, for backup
	width int
}

func (p *globParser) next() rune {
	if p.pos >= len(p.src) {
		p.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(p.src[p.pos:])
	p.pos += w
	p.width = w
	return r
}

func (p *globParser) backup() {
	p.pos -= p.width
	p.width = 0
}

func (p *globParser) peek() rune {
	r := p.next()
	p.backup()
	return r
}

func globToRegexp(s string) (string, error) {
	var out strings.Builder
	out.WriteString("^")
	p := &globParser{src: s}
	depth := 0

	for {
		r := p.next()
		switch r {
		case eof:
			if depth > 0 {
				return "", fmt.Errorf("unclosed '{'")
			}
			out.WriteString("$")
			return out.String(), nil
		case '?':
			out.WriteString("[^/]")
		case '*':
			if p.peek() != '*' {
				out.WriteString("[^/]*")
				continue
			}
			for p.next() == '*' {
			}
			p.backup()
			if p.peek() == '/' {
				p.next()
				// `**/` matches zero or more leading components.
				out.WriteString("(?:.*/)?")
			} else {
				out.WriteString(".*")
			}
		case '{':
			depth++
			out.WriteString("(?:")
		case ',':
			if depth == 0 {
				out.WriteString(",")
			} else {
				out.WriteString("|")
			}
		case '}':
			if depth == 0 {
				return "", fmt.Errorf("unexpected '}'")
			}
			depth--
			out.WriteString(")")
		case '\\':
			esc := p.next()
			if esc == eof {
				return "", fmt.Errorf("trailing backslash")
			}
			out.WriteString(regexp.QuoteMeta(string(esc)))
		default:
			out.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
}
