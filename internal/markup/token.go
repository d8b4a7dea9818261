// Package markup implements the lexer, parser, and AST for the JSX-style
// element markup found in page source.
//
// The lexer is context sensitive: inside a tag it produces names, '=',
// strings and braced expressions; between tags it produces text and
// expressions. The parser pulls tokens one at a time so that parsing can
// stop at the exact end of an element embedded in surrounding script.
package markup

// TokenType identifies the kind of lexical token.
type TokenType int

const (
	TokenEOF       TokenType = iota
	TokenLT                  // <
	TokenCloseOpen           // </
	TokenGT                  // >
	TokenSelfClose           // />
	TokenIdent               // tag or attribute name
	TokenEq                  // =
	TokenString              // "quoted" or 'quoted' attribute value
	TokenExpr                // {expression}, Literal excludes the braces
	TokenText                // content between tags
	TokenIllegal
)

var tokenNames = map[TokenType]string{
	TokenEOF:       "end of input",
	TokenLT:        "'<'",
	TokenCloseOpen: "'</'",
	TokenGT:        "'>'",
	TokenSelfClose: "'/>'",
	TokenIdent:     "name",
	TokenEq:        "'='",
	TokenString:    "string",
	TokenExpr:      "expression",
	TokenText:      "text",
	TokenIllegal:   "illegal character",
}

// String returns a readable token type name for error messages.
func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return "unknown"
}

// Token is a single lexical token. Pos and End are byte offsets in the
// whole source; Line and Col are 1-based.
type Token struct {
	Type    TokenType
	Literal string
	Pos     int
	End     int
	Line    int
	Col     int
}
