package expr

import (
	"strconv"
	"strings"
	"unicode"
)

type (
	tokenKind int

	token struct {
		value any
		text  string
		kind  tokenKind
		pos   int
	}

	lexer struct {
		src    string
		pos    int
		tokens []token
	}
)

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokTrue
	tokFalse
	tokNull
	tokAnd
	tokOr
	tokNot
	tokIn
	tokEq
	tokNe
	tokLt
	tokLe
	tokGt
	tokGe
	tokMinus
	tokDot
	tokComma
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
)

var keywords = map[string]tokenKind{
	"and":   tokAnd,
	"or":    tokOr,
	"not":   tokNot,
	"in":    tokIn,
	"true":  tokTrue,
	"True":  tokTrue,
	"false": tokFalse,
	"False": tokFalse,
	"null":  tokNull,
	"nil":   tokNull,
	"None":  tokNull,
}

var operators = []struct {
	text string
	kind tokenKind
}{
	{"==", tokEq},
	{"!=", tokNe},
	{"<=", tokLe},
	{">=", tokGe},
	{"&&", tokAnd},
	{"||", tokOr},
	{"<", tokLt},
	{">", tokGt},
	{"!", tokNot},
	{"-", tokMinus},
	{".", tokDot},
	{",", tokComma},
	{"(", tokLParen},
	{")", tokRParen},
	{"[", tokLBracket},
	{"]", tokRBracket},
}

var escapes = map[byte]byte{
	'n':  '\n',
	't':  '\t',
	'r':  '\r',
	'\\': '\\',
	'\'': '\'',
	'"':  '"',
}

func tokenize(src string) ([]token, error) {
	l := &lexer{src: src}
	for {
		l.skipSpace()
		if l.pos >= len(l.src) {
			l.tokens = append(l.tokens, token{kind: tokEOF, pos: l.pos})
			return l.tokens, nil
		}
		if err := l.next(); err != nil {
			return nil, err
		}
	}
}

func (l *lexer) next() error {
	c := l.src[l.pos]
	switch {
	case c == '\'' || c == '"':
		return l.lexString(c)
	case isDigit(c):
		return l.lexNumber()
	case isIdentStart(c):
		l.lexIdent()
		return nil
	}

	for _, op := range operators {
		if strings.HasPrefix(l.src[l.pos:], op.text) {
			l.emit(op.kind, op.text, nil, l.pos)
			l.pos += len(op.text)
			return nil
		}
	}
	return newError(l.src, l.pos, "unexpected character %q", c)
}

func (l *lexer) lexString(quote byte) error {
	start := l.pos
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case quote:
			l.pos++
			l.emit(tokString, l.src[start:l.pos], sb.String(), start)
			return nil
		case '\\':
			if l.pos+1 >= len(l.src) {
				return newError(l.src, l.pos, "unterminated escape")
			}
			esc, ok := escapes[l.src[l.pos+1]]
			if !ok {
				return newError(l.src, l.pos,
					"unknown escape \\%c", l.src[l.pos+1])
			}
			sb.WriteByte(esc)
			l.pos += 2
		default:
			sb.WriteByte(c)
			l.pos++
		}
	}
	return newError(l.src, start, "unterminated string")
}

func (l *lexer) lexNumber() error {
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.pos+1 < len(l.src) && l.src[l.pos] == '.' && isDigit(l.src[l.pos+1]) {
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		l.pos++
		if l.pos < len(l.src) && (l.src[l.pos] == '+' || l.src[l.pos] == '-') {
			l.pos++
		}
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}

	text := l.src[start:l.pos]
	num, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return newError(l.src, start, "invalid number %q", text)
	}
	l.emit(tokNumber, text, num, start)
	return nil
}

func (l *lexer) lexIdent() {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.pos++
	}
	text := l.src[start:l.pos]
	if kind, ok := keywords[text]; ok {
		l.emit(kind, text, nil, start)
		return
	}
	l.emit(tokIdent, text, text, start)
}

func (l *lexer) emit(kind tokenKind, text string, value any, pos int) {
	l.tokens = append(l.tokens, token{
		kind:  kind,
		text:  text,
		value: value,
		pos:   pos,
	})
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) && unicode.IsSpace(rune(l.src[l.pos])) {
		l.pos++
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
