package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOK(t *testing.T, input string) *Element {
	t.Helper()
	el, errs := ParseFragment(input)
	require.Empty(t, errs, "parse errors")
	require.NotNil(t, el)
	return el
}

func TestParser_Nested(t *testing.T) {
	input := `<Card title="Hi"><Button type="primary">OK</Button><Divider /></Card>`
	card := parseOK(t, input)

	assert.Equal(t, "Card", card.Name)
	assert.True(t, card.Closed)
	assert.Equal(t, len(input), card.End)
	require.NotNil(t, card.Attr("title"))
	assert.Equal(t, ValueString, card.Attr("title").Kind)
	assert.Equal(t, "Hi", card.Attr("title").Raw)

	kids := card.Elements()
	require.Len(t, kids, 2)
	assert.Equal(t, "Button", kids[0].Name)
	assert.Equal(t, "OK", kids[0].Text())
	assert.Equal(t, "Divider", kids[1].Name)
	assert.True(t, kids[1].SelfClosing)
}

func TestParser_AttributeKinds(t *testing.T) {
	el := parseOK(t, `<Input {...rest} disabled value={form.name} placeholder='Name' />`)
	require.Len(t, el.Attrs, 4)

	assert.Equal(t, ValueSpread, el.Attrs[0].Kind)
	assert.Equal(t, "rest", el.Attrs[0].Raw)
	assert.Equal(t, ValueBool, el.Attr("disabled").Kind)
	assert.Equal(t, ValueExpr, el.Attr("value").Kind)
	assert.Equal(t, "form.name", el.Attr("value").Raw)
	assert.Equal(t, ValueString, el.Attr("placeholder").Kind)
	assert.Nil(t, el.Attr("missing"))
}

func TestParser_Fragment(t *testing.T) {
	el := parseOK(t, `<><Tag /><Tag /></>`)
	assert.Equal(t, "", el.Name)
	assert.True(t, el.Closed)
	assert.Len(t, el.Elements(), 2)
}

func TestParser_TextWhitespace(t *testing.T) {
	el := parseOK(t, "<Text>\n  Hello\n  world\n</Text>")
	assert.Equal(t, "Hello world", el.Text())
}

func TestParser_MismatchedCloseRecovers(t *testing.T) {
	row, errs := ParseFragment(`<Row><Col><Button /></Row>`)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "<Col> is not closed")

	require.NotNil(t, row)
	assert.True(t, row.Closed)
	col := row.Elements()[0]
	assert.Equal(t, "Col", col.Name)
	assert.False(t, col.Closed)
	require.Len(t, col.Elements(), 1)
	assert.Equal(t, "Button", col.Elements()[0].Name)
}

func TestParser_UnclosedAtEOF(t *testing.T) {
	form, errs := ParseFragment(`<Form><Input>`)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Message, "<Input> is not closed")
	assert.Contains(t, errs[1].Message, "<Form> is not closed")
	require.NotNil(t, form)
	assert.Len(t, form.Elements(), 1)
}

func TestParser_StrayClosingTag(t *testing.T) {
	el, errs := ParseFragment(`<A></B></A>`)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "unexpected closing tag </B>")
	assert.Equal(t, 1, errs[0].Line)
	assert.Equal(t, 4, errs[0].Col)
	assert.True(t, el.Closed)
}

func TestParser_NotAnElement(t *testing.T) {
	el, errs := ParseFragment("hello")
	assert.Nil(t, el)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "expected element")
}

func TestWalk_VisitsParents(t *testing.T) {
	el := parseOK(t, `<Row><Col><Button /></Col><Col /></Row>`)

	var seen []string
	Walk([]*Element{el}, func(e, parent *Element) bool {
		p := "-"
		if parent != nil {
			p = parent.Name
		}
		seen = append(seen, e.Name+"<"+p)
		return e.Name != "Col" || len(seen) > 2
	})
	assert.Equal(t, []string{"Row<-", "Col<Row", "Col<Row"}, seen)
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, Levenshtein("Card", "Card"))
	assert.Equal(t, 3, Levenshtein("kitten", "sitting"))
	assert.Equal(t, 3, Levenshtein("", "abc"))
	assert.Equal(t, 1, Levenshtein("Buton", "Button"))
}

func TestSuggestFrom(t *testing.T) {
	cands := []string{"Button", "Card", "Table"}
	assert.Equal(t, "Button", Suggest("Buton", cands, 2))
	assert.Equal(t, "did you mean 'Table'?", SuggestFrom("Tabel", cands, 2))
	assert.Equal(t, "", SuggestFrom("Xyzzy", cands, 2))
}
