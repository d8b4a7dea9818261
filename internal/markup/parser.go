package markup

import (
	"strings"
)

// Parser is a recursive descent parser for one element. It pulls tokens
// from a Lexer and stops on the element's final token, so the caller
// knows exactly where the element ends in the surrounding source.
type Parser struct {
	lex         *Lexer
	tok         Token
	errors      []*ParseError
	open        []string // names of the elements being parsed, outermost first
	pending     *Token   // a closing tag that belongs to an enclosing element
	pendingName string
}

// NewParser creates a parser reading from lex. The lexer must be
// positioned at a '<'.
func NewParser(lex *Lexer) *Parser {
	p := &Parser{lex: lex}
	p.advance()
	return p
}

// ParseElement parses a single element. It returns nil when the input
// does not start with an element. Errors are collected rather than
// returned early; a partially parsed element is still returned.
func (p *Parser) ParseElement() (*Element, []*ParseError) {
	if p.tok.Type != TokenLT {
		p.addError(p.tok, "expected element, got %s", p.tok.Type)
		return nil, p.errors
	}
	el := p.parseElement()
	if p.pending != nil {
		p.addError(*p.pending, "unexpected closing tag </%s>", p.pendingName)
		p.pending = nil
	}
	return el, p.errors
}

func (p *Parser) advance() Token {
	p.tok = p.lex.Next()
	return p.tok
}

func (p *Parser) addError(tok Token, format string, args ...any) {
	p.errors = append(p.errors, errorAt(tok, format, args...))
}

// synchronize skips to the end of the current tag.
func (p *Parser) synchronize() {
	for {
		switch p.tok.Type {
		case TokenGT, TokenSelfClose, TokenEOF:
			return
		}
		p.advance()
	}
}

// parseElement starts on '<' and returns with p.tok on the element's last
// token.
func (p *Parser) parseElement() *Element {
	lt := p.tok
	el := &Element{TokenPos: lt.Pos, Line: lt.Line, Col: lt.Col, End: lt.End}

	p.advance()
	if p.tok.Type == TokenIdent {
		el.Name = p.tok.Literal
		p.advance()
	} else if p.tok.Type != TokenGT {
		p.addError(p.tok, "expected tag name, got %s", p.tok.Type)
	}

	p.parseAttrs(el)

	switch p.tok.Type {
	case TokenSelfClose:
		el.SelfClosing = true
		el.Closed = true
		el.End = p.tok.End
		return el
	case TokenGT:
	case TokenEOF:
		p.addError(p.tok, "unterminated tag <%s>", el.Name)
		el.End = p.tok.Pos
		return el
	default:
		p.addError(p.tok, "expected '>' or '/>' in <%s>, got %s", el.Name, p.tok.Type)
		p.synchronize()
		if p.tok.Type == TokenSelfClose {
			el.SelfClosing = true
			el.Closed = true
			el.End = p.tok.End
			return el
		}
		if p.tok.Type == TokenEOF {
			el.End = p.tok.Pos
			return el
		}
	}

	p.open = append(p.open, el.Name)
	defer func() { p.open = p.open[:len(p.open)-1] }()
	p.parseChildren(el)
	return el
}

func (p *Parser) parseAttrs(el *Element) {
	for {
		switch p.tok.Type {
		case TokenIdent:
			a := &Attr{TokenPos: p.tok.Pos, Line: p.tok.Line, Col: p.tok.Col, Name: p.tok.Literal, Kind: ValueBool}
			p.advance()
			if p.tok.Type == TokenEq {
				p.advance()
				switch p.tok.Type {
				case TokenString:
					a.Kind, a.Raw = ValueString, p.tok.Literal
					p.advance()
				case TokenExpr:
					a.Kind, a.Raw = ValueExpr, p.tok.Literal
					p.advance()
				default:
					p.addError(p.tok, "expected value for attribute %s, got %s", a.Name, p.tok.Type)
				}
			}
			el.Attrs = append(el.Attrs, a)
		case TokenExpr:
			src := strings.TrimSpace(p.tok.Literal)
			if strings.HasPrefix(src, "...") {
				el.Attrs = append(el.Attrs, &Attr{TokenPos: p.tok.Pos, Line: p.tok.Line, Col: p.tok.Col, Kind: ValueSpread, Raw: strings.TrimPrefix(src, "...")})
			} else {
				p.addError(p.tok, "unexpected expression in <%s>", el.Name)
			}
			p.advance()
		default:
			return
		}
	}
}

// parseChildren reads content up to and including the closing tag.
func (p *Parser) parseChildren(el *Element) {
	p.advance()
	for {
		switch p.tok.Type {
		case TokenText:
			el.Children = append(el.Children, &Text{TokenPos: p.tok.Pos, Value: p.tok.Literal})
		case TokenExpr:
			el.Children = append(el.Children, &ExprContainer{
				TokenPos: p.tok.Pos,
				Line:     p.tok.Line,
				Col:      p.tok.Col,
				Source:   p.tok.Literal,
			})
		case TokenLT:
			child := p.parseElement()
			el.Children = append(el.Children, child)
			if p.pending != nil {
				if p.pendingName == el.Name {
					p.pending = nil
					el.Closed = true
					el.End = p.tok.End
					return
				}
				p.addError(Token{Pos: el.TokenPos, Line: el.Line, Col: el.Col}, "<%s> is not closed", el.Name)
				el.End = child.End
				return
			}
		case TokenCloseOpen:
			if p.parseClosing(el) {
				return
			}
		case TokenEOF:
			p.addError(Token{Pos: el.TokenPos, Line: el.Line, Col: el.Col}, "<%s> is not closed", el.Name)
			el.End = p.tok.Pos
			return
		}
		p.advance()
	}
}

// parseClosing reads a closing tag. It reports whether el is finished,
// either because the tag closes el or because it closes an enclosing
// element, in which case el is reported unclosed and the tag is left
// pending for the parent.
func (p *Parser) parseClosing(el *Element) bool {
	start := p.tok
	p.advance()
	name := ""
	if p.tok.Type == TokenIdent {
		name = p.tok.Literal
		p.advance()
	}
	if p.tok.Type != TokenGT {
		p.addError(p.tok, "expected '>' after </%s, got %s", name, p.tok.Type)
		p.synchronize()
	}
	if name == el.Name {
		el.Closed = true
		el.End = p.tok.End
		return true
	}
	if p.isOpenAncestor(name) {
		p.addError(Token{Pos: el.TokenPos, Line: el.Line, Col: el.Col}, "<%s> is not closed", el.Name)
		p.pending = &start
		p.pendingName = name
		el.End = start.Pos
		return true
	}
	p.addError(start, "unexpected closing tag </%s> inside <%s>", name, el.Name)
	return false
}

// isOpenAncestor reports whether name is open above the innermost element.
func (p *Parser) isOpenAncestor(name string) bool {
	for i := len(p.open) - 2; i >= 0; i-- {
		if p.open[i] == name {
			return true
		}
	}
	return false
}
