package markup

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

type mode int

const (
	modeContent mode = iota
	modeTag
)

// Lexer tokenizes element markup. It starts in content mode.
type Lexer struct {
	input  string
	pos    int // current byte position
	end    int // scanning stops here
	line   int // 1-based
	col    int // 1-based
	mode   mode
	errors []error
}

// NewLexer creates a lexer for the given input.
func NewLexer(input string) *Lexer {
	return newLexerAt(input, 0, len(input), 1, 1)
}

// newLexerAt creates a lexer over input[pos:end] that reports positions
// relative to the whole input, starting at the given line and column.
func newLexerAt(input string, pos, end, line, col int) *Lexer {
	if end > len(input) {
		end = len(input)
	}
	return &Lexer{input: input, pos: pos, end: end, line: line, col: col}
}

// Tokenize scans the remaining input and returns all tokens plus any errors.
func (l *Lexer) Tokenize() ([]Token, []error) {
	var toks []Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	return toks, l.errors
}

// Errors returns the errors collected so far.
func (l *Lexer) Errors() []error {
	return l.errors
}

func (l *Lexer) peek() rune {
	return l.peekAt(0)
}

func (l *Lexer) peekAt(offset int) rune {
	p := l.pos + offset
	if p >= l.end {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[p:l.end])
	return r
}

func (l *Lexer) advance() rune {
	if l.pos >= l.end {
		return 0
	}
	r, size := utf8.DecodeRuneInString(l.input[l.pos:l.end])
	l.pos += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) atEnd() bool {
	return l.pos >= l.end
}

func (l *Lexer) tok(t TokenType, start, line, col int) Token {
	return Token{Type: t, Literal: l.input[start:l.pos], Pos: start, End: l.pos, Line: line, Col: col}
}

func (l *Lexer) errorf(line, col int, format string, args ...any) {
	l.errors = append(l.errors, &ParseError{
		Message: fmt.Sprintf(format, args...),
		Line:    line,
		Col:     col,
		Pos:     l.pos,
	})
}

// Next scans and returns the next token for the current mode.
func (l *Lexer) Next() Token {
	if l.mode == modeTag {
		return l.nextTag()
	}
	return l.nextContent()
}

func (l *Lexer) nextContent() Token {
	start, line, col := l.pos, l.line, l.col
	if l.atEnd() {
		return Token{Type: TokenEOF, Pos: l.pos, End: l.pos, Line: line, Col: col}
	}
	switch r := l.peek(); {
	case r == '<' && l.peekAt(1) == '/':
		l.advance()
		l.advance()
		l.mode = modeTag
		return l.tok(TokenCloseOpen, start, line, col)
	case r == '<' && opensTag(l.peekAt(1)):
		l.advance()
		l.mode = modeTag
		return l.tok(TokenLT, start, line, col)
	case r == '{':
		return l.scanExpr()
	}
	for !l.atEnd() {
		r := l.peek()
		if r == '{' || (r == '<' && (l.peekAt(1) == '/' || opensTag(l.peekAt(1)))) {
			break
		}
		l.advance()
	}
	return l.tok(TokenText, start, line, col)
}

func (l *Lexer) nextTag() Token {
	for !l.atEnd() && unicode.IsSpace(l.peek()) {
		l.advance()
	}
	start, line, col := l.pos, l.line, l.col
	if l.atEnd() {
		return Token{Type: TokenEOF, Pos: l.pos, End: l.pos, Line: line, Col: col}
	}
	r := l.peek()
	switch {
	case r == '>':
		l.advance()
		l.mode = modeContent
		return l.tok(TokenGT, start, line, col)
	case r == '/' && l.peekAt(1) == '>':
		l.advance()
		l.advance()
		l.mode = modeContent
		return l.tok(TokenSelfClose, start, line, col)
	case r == '=':
		l.advance()
		return l.tok(TokenEq, start, line, col)
	case r == '"' || r == '\'':
		return l.scanString()
	case r == '{':
		return l.scanExpr()
	case isNameStart(r):
		for !l.atEnd() && isNamePart(l.peek()) {
			l.advance()
		}
		return l.tok(TokenIdent, start, line, col)
	}
	l.advance()
	l.errorf(line, col, "unexpected character %q", r)
	return l.tok(TokenIllegal, start, line, col)
}

// scanString reads a quoted attribute value. Markup strings have no
// escape sequences.
func (l *Lexer) scanString() Token {
	start, line, col := l.pos, l.line, l.col
	quote := l.advance()
	for !l.atEnd() {
		if l.advance() == quote {
			t := l.tok(TokenString, start, line, col)
			t.Literal = t.Literal[1 : len(t.Literal)-1]
			return t
		}
	}
	l.errorf(line, col, "unterminated string")
	t := l.tok(TokenString, start, line, col)
	t.Literal = t.Literal[1:]
	return t
}

// scanExpr reads a braced expression, balancing nested braces and
// skipping string literals, template literals and comments.
func (l *Lexer) scanExpr() Token {
	start, line, col := l.pos, l.line, l.col
	if !l.skipBalanced() {
		l.errorf(line, col, "unterminated expression")
		t := l.tok(TokenExpr, start, line, col)
		t.Literal = t.Literal[1:]
		return t
	}
	t := l.tok(TokenExpr, start, line, col)
	t.Literal = t.Literal[1 : len(t.Literal)-1]
	return t
}

// skipBalanced consumes from an opening '{' through its matching '}'.
func (l *Lexer) skipBalanced() bool {
	depth := 0
	var prev rune = '{'
	for !l.atEnd() {
		r := l.peek()
		switch {
		case r == '{':
			depth++
		case r == '}':
			depth--
			if depth == 0 {
				l.advance()
				return true
			}
		case r == '/' && l.peekAt(1) == '/':
			for !l.atEnd() && l.peek() != '\n' {
				l.advance()
			}
			continue
		case r == '/' && l.peekAt(1) == '*':
			l.advance()
			l.advance()
			for !l.atEnd() && !(l.peek() == '*' && l.peekAt(1) == '/') {
				l.advance()
			}
			l.advance()
			l.advance()
			continue
		case r == '`' && startsExpr(prev):
			if !l.skipTemplate() {
				return false
			}
			prev = '`'
			continue
		case (r == '"' || r == '\'') && startsExpr(prev):
			if !l.skipQuoted() {
				return false
			}
			prev = r
			continue
		}
		l.advance()
		if !unicode.IsSpace(r) {
			prev = r
		}
	}
	return false
}

func (l *Lexer) skipQuoted() bool {
	quote := l.advance()
	for !l.atEnd() {
		r := l.advance()
		switch r {
		case '\\':
			l.advance()
		case quote:
			return true
		case '\n':
			return false
		}
	}
	return false
}

func (l *Lexer) skipTemplate() bool {
	l.advance()
	for !l.atEnd() {
		r := l.peek()
		switch {
		case r == '\\':
			l.advance()
			l.advance()
		case r == '`':
			l.advance()
			return true
		case r == '$' && l.peekAt(1) == '{':
			l.advance()
			if !l.skipBalanced() {
				return false
			}
		default:
			l.advance()
		}
	}
	return false
}

// startsExpr reports whether a quote following prev opens a string
// literal. After a letter or digit a quote is ordinary text, as in an
// apostrophe inside element content nested in an expression.
func startsExpr(prev rune) bool {
	return !(unicode.IsLetter(prev) || unicode.IsDigit(prev) || prev == '_' || prev == ')' || prev == ']')
}

func opensTag(r rune) bool {
	return isNameStart(r) || r == '>'
}

func isNameStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isNamePart(r rune) bool {
	return isNameStart(r) || unicode.IsDigit(r) || r == '-' || r == '.' || r == ':'
}
