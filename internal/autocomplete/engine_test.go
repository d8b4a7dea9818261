package autocomplete

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdrslab/fundam-builder/internal/registry"
)

var engine = New(registry.MustDefault())

func labels(items []CompletionItem) []string {
	var out []string
	for _, it := range items {
		out = append(out, it.Label)
	}
	return out
}

func complete(text string) []CompletionItem {
	return engine.Complete(text, len(text))
}

func TestComplete_ComponentAfterLT(t *testing.T) {
	items := complete("<")
	assert.Contains(t, labels(items), "Button")
	assert.Contains(t, labels(items), "Card")
}

func TestComplete_ComponentPartial(t *testing.T) {
	items := complete("<div>\n  <Bu")
	require.Len(t, items, 1)
	assert.Equal(t, "Button", items[0].Label)
	assert.Equal(t, "component", items[0].Kind)
	assert.Equal(t, "Button (antd)", items[0].Detail)
}

func TestComplete_ComponentPartialIsCaseInsensitive(t *testing.T) {
	assert.Contains(t, labels(complete("<ca")), "Card")
}

func TestComplete_ClosingTag(t *testing.T) {
	assert.Contains(t, labels(complete("<Card></Ca")), "Card")
}

func TestComplete_PropsAfterTagName(t *testing.T) {
	items := complete("<Button ")
	l := labels(items)
	assert.Contains(t, l, "type")
	assert.Contains(t, l, "danger")
	assert.NotContains(t, l, "children")

	for _, it := range items {
		switch it.Label {
		case "danger":
			assert.Equal(t, "danger", it.InsertText)
		case "type":
			assert.Equal(t, `type=""`, it.InsertText)
			assert.Equal(t, "select", it.Detail)
		case "actions":
			assert.Equal(t, "actions={}", it.InsertText)
		}
	}
}

func TestComplete_PropPartial(t *testing.T) {
	assert.Equal(t, []string{"type"}, labels(complete("<Button ty")))
}

func TestComplete_SkipsWrittenProps(t *testing.T) {
	l := labels(complete(`<Button type="primary" disabled `))
	assert.NotContains(t, l, "type")
	assert.NotContains(t, l, "disabled")
	assert.Contains(t, l, "danger")
}

func TestComplete_SelectValuesAfterEq(t *testing.T) {
	items := complete("<Button type=")
	assert.Equal(t, []string{"primary", "default", "dashed", "link", "text"}, labels(items))
	assert.Equal(t, `"primary"`, items[0].InsertText)
}

func TestComplete_SelectValuesInsideString(t *testing.T) {
	items := complete(`<Button size="m`)
	require.Len(t, items, 1)
	assert.Equal(t, "middle", items[0].Label)
	assert.Empty(t, items[0].InsertText)
}

func TestComplete_BooleanAfterEq(t *testing.T) {
	assert.Equal(t, []string{"true", "false"}, labels(complete("<Button danger=")))
}

func TestComplete_MemberTag(t *testing.T) {
	assert.Equal(t, []string{"level"}, labels(complete("<Typography.Title le")))
}

func TestComplete_NoSuggestions(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"no tag", "const a = 1"},
		{"content", "<Button>Sa"},
		{"closed string", `<Button type="primary"`},
		{"open expression", "<Button onClick={() => "},
		{"unknown component", "<Foo "},
		{"comparison", "a < b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, complete(tt.text))
		})
	}
}

func TestComplete_CursorInMiddle(t *testing.T) {
	text := "<Button ty />"
	items := engine.Complete(text, len("<Button ty"))
	assert.Equal(t, []string{"type"}, labels(items))
}
