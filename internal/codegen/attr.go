package codegen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// attrs renders props (minus children) as sorted JSX attributes, followed
// by event handlers in name order.
func attrs(props map[string]any, events map[string]string) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		if k == "children" || !validAttrName(k) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(attr(k, props[k]))
	}

	names := make([]string, 0, len(events))
	for k := range events {
		if _, shadowed := props[k]; shadowed || !validAttrName(k) {
			continue
		}
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(&b, " %s={%s}", k, strings.TrimSpace(events[k]))
	}
	return b.String()
}

// attr renders one attribute. True booleans are bare, false is an explicit
// literal. Plain strings are quoted. Everything else, and strings a quoted
// attribute cannot carry verbatim (quotes, newlines, entity ampersands),
// is an embedded JSON expression.
func attr(name string, v any) string {
	switch x := v.(type) {
	case bool:
		if x {
			return name
		}
		return name + "={false}"
	case string:
		if !strings.ContainsAny(x, "\"&\n\r") {
			return name + `="` + x + `"`
		}
	}
	return name + "={" + jsonLiteral(v) + "}"
}

// text renders a children prop as element content. The empty string is
// an expression so it survives a re-parse.
func text(v any) string {
	if s, ok := v.(string); ok && s != "" {
		if !strings.ContainsAny(s, "{}<>&\n\r") && strings.TrimSpace(s) == s {
			return s
		}
	}
	return "{" + jsonLiteral(v) + "}"
}

func jsonLiteral(v any) string {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "null"
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func validAttrName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '$':
		case i > 0 && (r >= '0' && r <= '9' || r == '-' || r == ':'):
		default:
			return false
		}
	}
	return true
}
