package codesync

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdrslab/fundam-builder/internal/codegen"
	"github.com/cdrslab/fundam-builder/internal/idgen"
	"github.com/cdrslab/fundam-builder/internal/registry"
	"github.com/cdrslab/fundam-builder/internal/types"
)

var reg = registry.MustDefault()

func newParser(prefix string) *Parser {
	return New(reg, WithIDGenerator(idgen.Sequence(prefix)))
}

func byType(nodes []types.ComponentNode) map[string]types.ComponentNode {
	out := map[string]types.ComponentNode{}
	for _, n := range nodes {
		out[n.Type] = n
	}
	return out
}

func TestParse_RoundTripWithGenerator(t *testing.T) {
	in := []types.ComponentNode{
		{ID: "1", Type: "Button", Props: map[string]any{"children": "OK", "type": "primary", "disabled": true},
			Events: map[string]string{"onClick": "() => save()"}},
		{ID: "2", Type: "Input", Props: map[string]any{"placeholder": "Name", "maxLength": 10.0}},
		{ID: "3", Type: "Table", Props: map[string]any{
			"pagination": false,
			"columns":    []any{map[string]any{"title": "ID", "dataIndex": "id"}},
		}},
		{ID: "4", Type: "Tag", Props: map[string]any{"children": "a{b}"}},
		{ID: "5", Type: "Divider", Props: map[string]any{}},
		{ID: "6", Type: "Badge", Props: map[string]any{"children": ""}},
		{ID: "7", Type: "Alert", Props: map[string]any{"message": "R&amp;D", "children": "x & y"}},
	}
	src := codegen.New(reg, codegen.Options{}).Generate(in)

	res := newParser("p").Parse(src)
	require.Empty(t, res.Diagnostics)
	require.Len(t, res.Nodes, len(in))

	type pair struct {
		typ   string
		props map[string]any
	}
	collect := func(nodes []types.ComponentNode) []pair {
		var out []pair
		for _, n := range nodes {
			out = append(out, pair{n.Type, n.Props})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].typ < out[j].typ })
		return out
	}
	assert.Equal(t, collect(in), collect(res.Nodes))
	assert.Equal(t, "() => save()", byType(res.Nodes)["Button"].Events["onClick"])
}

func TestParse_NestingThroughGenericMarkup(t *testing.T) {
	src := `
export default () => (
  <div className="page">
    <Card title="Users">
      <section>
        <Button>Add</Button>
      </section>
    </Card>
    <Divider />
  </div>
);`
	res := newParser("n").Parse(src)
	require.Empty(t, res.Diagnostics)
	require.Len(t, res.Nodes, 3)

	card, button, divider := res.Nodes[0], res.Nodes[1], res.Nodes[2]
	assert.Equal(t, "Card", card.Type)
	assert.True(t, card.IsRoot())
	assert.True(t, card.IsContainer)
	assert.Equal(t, "Button", button.Type)
	assert.Equal(t, card.ID, button.Parent())
	assert.Equal(t, "Add", button.Props["children"])
	assert.True(t, divider.IsRoot())

	require.NotNil(t, button.Source)
	assert.Equal(t, 6, button.Source.Line)
	assert.Equal(t, 9, button.Source.Column)
}

func TestParse_EventsAreNotProps(t *testing.T) {
	res := newParser("n").Parse(`<Button one="x" onClick={() => alert('hi')}>Go</Button>`)
	require.Len(t, res.Nodes, 1)
	b := res.Nodes[0]
	assert.Equal(t, map[string]string{"onClick": "() => alert('hi')"}, b.Events)
	assert.Equal(t, map[string]any{"one": "x", "children": "Go"}, b.Props)
}

func TestParse_EventNamesNeedUpperCaseAfterOn(t *testing.T) {
	res := newParser("n").Parse(`<Input onChange={handle} onlyOne onchange="x" />`)
	require.Len(t, res.Nodes, 1)
	in := res.Nodes[0]
	assert.Equal(t, map[string]string{"onChange": "handle"}, in.Events)
	assert.Equal(t, map[string]any{"onlyOne": true, "onchange": "x"}, in.Props)
}

func TestParse_HiddenByDefault(t *testing.T) {
	src := `<>
  <Modal title="Edit"><Text>x</Text></Modal>
  <Modal open title="Open" />
  <Drawer visible="true" />
  <Drawer open={false} />
</>`
	res := newParser("n").Parse(src)
	require.Len(t, res.Nodes, 5)

	assert.False(t, res.Nodes[0].IsVisible)
	assert.True(t, res.Nodes[1].IsVisible, "Text inside a modal is visible itself")
	assert.Equal(t, res.Nodes[0].ID, res.Nodes[1].Parent())
	assert.True(t, res.Nodes[2].IsVisible)
	assert.True(t, res.Nodes[3].IsVisible)
	assert.False(t, res.Nodes[4].IsVisible)
}

func TestParse_AttributeValues(t *testing.T) {
	src := `<Table
  rowKey="id"
  columns={[{title: 'ID', dataIndex: 'id'}, {title: "Name", dataIndex: 'name',},]}
  size={3}
  dataSource={rows}
  onChange={handleChange}
  scroll={{ x: 800 }}
  summary={() => <Empty />}
/>`
	res := newParser("n").Parse(src)
	require.Len(t, res.Nodes, 1)
	p := res.Nodes[0].Props

	assert.Equal(t, "id", p["rowKey"])
	assert.Equal(t, []any{
		map[string]any{"title": "ID", "dataIndex": "id"},
		map[string]any{"title": "Name", "dataIndex": "name"},
	}, p["columns"])
	assert.Equal(t, 3.0, p["size"])
	assert.Equal(t, "rows", p["dataSource"])
	assert.Equal(t, map[string]any{"x": 800.0}, p["scroll"])
	assert.Equal(t, "() => <Empty />", p["summary"])
	assert.Equal(t, "handleChange", res.Nodes[0].Events["onChange"])
}

func TestParse_MemberTags(t *testing.T) {
	res := newParser("n").Parse(`<Typography.Title level={2}>Hi</Typography.Title><Form.Item />`)
	require.Len(t, res.Nodes, 1)
	assert.Equal(t, "Title", res.Nodes[0].Type)
	assert.Equal(t, 2.0, res.Nodes[0].Props["level"])
	assert.Equal(t, "Hi", res.Nodes[0].Props["children"])
}

func TestParse_MalformedInputIsPartial(t *testing.T) {
	res := newParser("n").Parse("<Card>\n  <Button>OK\n</Card>\n<Buton />")
	require.Len(t, res.Nodes, 2)
	assert.Equal(t, "Card", res.Nodes[0].Type)
	assert.Equal(t, "Button", res.Nodes[1].Type)
	assert.Equal(t, res.Nodes[0].ID, res.Nodes[1].Parent())

	require.Len(t, res.Diagnostics, 2)
	assert.Equal(t, SeverityError, res.Diagnostics[0].Severity)
	assert.Contains(t, res.Diagnostics[0].Message, "<Button> is not closed")
	assert.Equal(t, SeverityWarning, res.Diagnostics[1].Severity)
	assert.Equal(t, "unknown component <Buton>", res.Diagnostics[1].Message)
	assert.Equal(t, "did you mean 'Button'?", res.Diagnostics[1].Suggestion)
	assert.Equal(t, 4, res.Diagnostics[1].Line)
}

func TestParse_FreshIDsEveryParse(t *testing.T) {
	p := New(reg)
	src := `<Button>OK</Button>`
	a := p.Parse(src).Nodes
	b := p.Parse(src).Nodes
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.NotEqual(t, a[0].ID, b[0].ID)
	assert.True(t, idgen.Valid(a[0].ID))
}

func TestParse_EmptySource(t *testing.T) {
	res := newParser("n").Parse("")
	assert.Empty(t, res.Nodes)
	assert.NotNil(t, res.Nodes)
	assert.Empty(t, res.Diagnostics)
}
