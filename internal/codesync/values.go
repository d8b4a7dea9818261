package codesync

import (
	"encoding/json"
	"strconv"
	"strings"

	"cuelang.org/go/cue"

	"github.com/cdrslab/fundam-builder/internal/markup"
)

// value decodes an attribute. Expressions that are not literal data are
// kept as their source text.
func (p *Parser) value(a *markup.Attr) any {
	switch a.Kind {
	case markup.ValueBool:
		return true
	case markup.ValueString:
		return a.Raw
	}
	return p.literal(a.Raw)
}

// literal evaluates a data literal written as JSON or as a JavaScript
// object literal (bare keys, single quotes, trailing commas). Anything
// else returns the trimmed source.
func (p *Parser) literal(src string) any {
	src = strings.TrimSpace(src)
	var v any
	if err := json.Unmarshal([]byte(src), &v); err == nil {
		return v
	}
	if v, ok := p.relaxed(src); ok {
		return v
	}
	return src
}

// relaxed evaluates src as CUE after rewriting single-quoted strings.
// CUE accepts bare field names and trailing commas but rejects references
// to unknown identifiers, so handler code and variables fail here.
func (p *Parser) relaxed(src string) (v any, ok bool) {
	if src == "" || !strings.ContainsAny(src[:1], "{['-0123456789") {
		return nil, false
	}
	norm, ok := requote(src)
	if !ok {
		return nil, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	defer func() {
		if recover() != nil {
			v, ok = nil, false
		}
	}()
	val := p.cue.CompileString(norm, cue.Filename("attr"))
	if val.Err() != nil || val.Validate(cue.Concrete(true)) != nil {
		return nil, false
	}
	b, err := val.MarshalJSON()
	if err != nil {
		return nil, false
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, false
	}
	return v, true
}

// requote rewrites '...' strings as JSON strings. Template literals are
// not data and fail.
func requote(src string) (string, bool) {
	var b strings.Builder
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch c {
		case '`':
			return "", false
		case '"':
			j := i + 1
			for ; j < len(src) && src[j] != '"'; j++ {
				if src[j] == '\\' {
					j++
				}
			}
			if j >= len(src) {
				return "", false
			}
			b.WriteString(src[i : j+1])
			i = j
		case '\'':
			var s strings.Builder
			j := i + 1
			for ; j < len(src) && src[j] != '\''; j++ {
				if src[j] == '\\' && j+1 < len(src) {
					j++
					switch src[j] {
					case 'n':
						s.WriteByte('\n')
					case 't':
						s.WriteByte('\t')
					default:
						s.WriteByte(src[j])
					}
					continue
				}
				s.WriteByte(src[j])
			}
			if j >= len(src) {
				return "", false
			}
			b.WriteString(strconv.Quote(s.String()))
			i = j
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), true
}
