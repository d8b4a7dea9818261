// Package autocomplete provides context-aware completions for the page
// source editor.
package autocomplete

import (
	"strings"

	"github.com/cdrslab/fundam-builder/internal/markup"
	"github.com/cdrslab/fundam-builder/internal/registry"
	"github.com/cdrslab/fundam-builder/internal/types"
)

// CompletionItem is a single autocomplete suggestion.
type CompletionItem struct {
	Label      string `json:"label"`
	Kind       string `json:"kind"` // "component", "prop", "value"
	Detail     string `json:"detail,omitempty"`
	InsertText string `json:"insert_text,omitempty"`
}

// Engine completes component tags, prop names and option values from the
// component registry.
type Engine struct {
	registry *registry.Registry
}

// New creates an autocomplete engine backed by the given registry.
func New(registry *registry.Registry) *Engine {
	return &Engine{registry: registry}
}

// Complete returns suggestions for the source text at the cursor byte
// offset. Outside a tag it returns nothing.
func (e *Engine) Complete(text string, cursor int) []CompletionItem {
	if cursor > len(text) {
		cursor = len(text)
	}
	if cursor < 0 {
		cursor = 0
	}
	prefix := text[:cursor]

	lt := strings.LastIndexByte(prefix, '<')
	if lt < 0 {
		return nil
	}
	seg := prefix[lt:]
	switch {
	case seg == "<":
		return e.completeComponents("")
	case seg == "</":
		return e.completeComponents("")
	case strings.HasPrefix(seg, "</"):
		if isName(seg[2:]) {
			return e.completeComponents(strings.ToLower(seg[2:]))
		}
		return nil
	}

	lexer := markup.NewLexer(seg)
	tokens, _ := lexer.Tokenize()
	if len(tokens) > 0 && tokens[len(tokens)-1].Type == markup.TokenEOF {
		tokens = tokens[:len(tokens)-1]
	}
	if len(tokens) < 2 || tokens[0].Type != markup.TokenLT || tokens[1].Type != markup.TokenIdent {
		return nil
	}
	for _, t := range tokens {
		if t.Type == markup.TokenGT || t.Type == markup.TokenSelfClose {
			// the cursor is past the tag, in element content
			return nil
		}
	}

	last := tokens[len(tokens)-1]
	atEnd := last.End == len(seg)

	// Still typing the tag name.
	if len(tokens) == 2 && atEnd {
		return e.completeComponents(strings.ToLower(last.Literal))
	}

	def, ok := e.lookup(tokens[1].Literal)
	if !ok {
		return nil
	}

	switch last.Type {
	case markup.TokenIdent:
		if atEnd {
			return e.completeProps(def, tokens[2:len(tokens)-1], strings.ToLower(last.Literal))
		}
		return e.completeProps(def, tokens[2:], "")

	case markup.TokenEq:
		if atEnd && len(tokens) >= 4 {
			return e.completeValues(def, tokens[len(tokens)-2].Literal, "", true)
		}

	case markup.TokenString:
		unterminated := atEnd && !closedString(seg, last)
		if unterminated && len(tokens) >= 5 && tokens[len(tokens)-2].Type == markup.TokenEq {
			return e.completeValues(def, tokens[len(tokens)-3].Literal, strings.ToLower(last.Literal), false)
		}
		if !atEnd {
			return e.completeProps(def, tokens[2:], "")
		}

	case markup.TokenExpr:
		if !atEnd {
			return e.completeProps(def, tokens[2:], "")
		}
	}
	return nil
}

// lookup resolves a tag name, including member names such as
// Typography.Title.
func (e *Engine) lookup(name string) (*types.ComponentDefinition, bool) {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		name = name[i+1:]
	}
	return e.registry.Lookup(name)
}

// ── Completion providers ────────────────────────────────────────────────────

func (e *Engine) completeComponents(partial string) []CompletionItem {
	var items []CompletionItem
	for _, def := range e.registry.All() {
		if partial == "" || strings.HasPrefix(strings.ToLower(def.Type), partial) {
			items = append(items, CompletionItem{
				Label:  def.Type,
				Kind:   "component",
				Detail: def.Label + " (" + def.Module + ")",
			})
		}
	}
	return items
}

func (e *Engine) completeProps(def *types.ComponentDefinition, written []markup.Token, partial string) []CompletionItem {
	present := map[string]bool{}
	for _, t := range written {
		if t.Type == markup.TokenIdent {
			present[t.Literal] = true
		}
	}
	var items []CompletionItem
	for _, pt := range def.PropTypes {
		if pt.Name == "children" || present[pt.Name] {
			continue
		}
		if partial == "" || strings.HasPrefix(strings.ToLower(pt.Name), partial) {
			items = append(items, CompletionItem{
				Label:      pt.Name,
				Kind:       "prop",
				Detail:     string(pt.Kind),
				InsertText: insertText(pt),
			})
		}
	}
	return items
}

func (e *Engine) completeValues(def *types.ComponentDefinition, prop, partial string, quote bool) []CompletionItem {
	pt, ok := def.PropType(prop)
	if !ok {
		return nil
	}
	options := pt.Options
	if pt.Kind == types.PropBoolean && quote {
		return []CompletionItem{
			{Label: "true", Kind: "value", InsertText: "{true}"},
			{Label: "false", Kind: "value", InsertText: "{false}"},
		}
	}
	var items []CompletionItem
	for _, v := range options {
		if partial == "" || strings.HasPrefix(strings.ToLower(v), partial) {
			item := CompletionItem{Label: v, Kind: "value"}
			if quote {
				item.InsertText = "\"" + v + "\""
			}
			items = append(items, item)
		}
	}
	return items
}

// ── Helpers ─────────────────────────────────────────────────────────────────

func insertText(pt types.PropType) string {
	switch pt.Kind {
	case types.PropBoolean:
		return pt.Name
	case types.PropNumber, types.PropJSON, types.PropActions:
		return pt.Name + "={}"
	}
	return pt.Name + `=""`
}

// closedString reports whether the string token ends with its closing
// quote.
func closedString(seg string, tok markup.Token) bool {
	raw := seg[tok.Pos:tok.End]
	return len(raw) >= 2 && raw[len(raw)-1] == raw[0]
}

func isName(s string) bool {
	for _, r := range s {
		if !(r == '_' || r == '.' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
