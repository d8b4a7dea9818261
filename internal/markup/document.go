package markup

import (
	"unicode"
)

// ParseDocument finds and parses every element in a source file. Script
// around the markup is skimmed, not parsed: strings, template literals and
// comments are skipped, and a '<' starts an element only where an
// expression may begin (after '(', '=', ',', 'return' and the like), so
// comparisons and type arguments are left alone. Markup inside braced
// child expressions is parsed too and attached to its container.
//
// ParseDocument never fails. Problems are returned beside whatever could
// be parsed.
func ParseDocument(src string) (*Document, []*ParseError) {
	var errs []*ParseError
	els := scan(src, 0, len(src), 1, 1, &errs)
	return &Document{Elements: els}, errs
}

// ParseFragment parses markup that starts with an element, such as a
// snippet pasted into the editor.
func ParseFragment(src string) (*Element, []*ParseError) {
	p := NewParser(NewLexer(src))
	el, errs := p.ParseElement()
	errs = append(lexErrors(p.lex), errs...)
	if el != nil {
		resolveExprs(src, el, &errs)
	}
	return el, errs
}

func scan(src string, start, end, line, col int, errs *[]*ParseError) []*Element {
	l := newLexerAt(src, start, end, line, col)
	var out []*Element
	var prev rune
	for !l.atEnd() {
		r := l.peek()
		switch {
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
		case r == '"' || r == '\'':
			l.skipQuoted()
			prev = r
			continue
		case r == '`':
			l.skipTemplate()
			prev = r
			continue
		case r == '<' && opensTag(l.peekAt(1)) && elementMayStart(src, start, l.pos, prev):
			el := parseAt(src, l.pos, end, l.line, l.col, errs)
			out = append(out, el)
			for l.pos < el.End && !l.atEnd() {
				l.advance()
			}
			prev = '>'
			continue
		}
		l.advance()
		if !unicode.IsSpace(r) {
			prev = r
		}
	}
	return out
}

func parseAt(src string, pos, end, line, col int, errs *[]*ParseError) *Element {
	lex := newLexerAt(src, pos, end, line, col)
	p := NewParser(lex)
	el, perrs := p.ParseElement()
	*errs = append(*errs, lexErrors(lex)...)
	*errs = append(*errs, perrs...)
	if el == nil {
		return &Element{TokenPos: pos, Line: line, Col: col, End: pos + 1}
	}
	if el.End <= pos {
		el.End = pos + 1
	}
	resolveExprs(src, el, errs)
	return el
}

// resolveExprs parses markup inside the element's child expressions,
// recursively.
func resolveExprs(src string, el *Element, errs *[]*ParseError) {
	for _, c := range el.Children {
		switch x := c.(type) {
		case *Element:
			resolveExprs(src, x, errs)
		case *ExprContainer:
			inner := x.TokenPos + 1
			x.Elements = scan(src, inner, inner+len(x.Source), x.Line, x.Col+1, errs)
		}
	}
}

func lexErrors(l *Lexer) []*ParseError {
	var out []*ParseError
	for _, err := range l.Errors() {
		if pe, ok := err.(*ParseError); ok {
			out = append(out, pe)
		}
	}
	return out
}

// elementMayStart reports whether a '<' at pos, after the significant rune
// prev, can open an element. After a word it may only when the word is a
// keyword that introduces an expression.
func elementMayStart(src string, start, pos int, prev rune) bool {
	if prev == 0 || startsExpr(prev) {
		return true
	}
	i := pos - 1
	for i >= start && (src[i] == ' ' || src[i] == '\t' || src[i] == '\n' || src[i] == '\r') {
		i--
	}
	j := i
	for j >= start && (src[j] >= 'a' && src[j] <= 'z') {
		j--
	}
	if j >= start && isNamePart(rune(src[j])) {
		return false
	}
	switch src[j+1 : i+1] {
	case "return", "yield", "default", "case", "await":
		return true
	}
	return false
}
