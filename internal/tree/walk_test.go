package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdrslab/fundam-builder/internal/idgen"
	"github.com/cdrslab/fundam-builder/internal/types"
)

func node(id, parent string) types.ComponentNode {
	return types.ComponentNode{ID: id, Type: "Card", ParentID: types.StringPtr(parent)}
}

func TestNest_KeepsOrder(t *testing.T) {
	forest := Nest([]types.ComponentNode{
		node("a", ""),
		node("b", "a"),
		node("c", ""),
		node("d", "a"),
		node("e", "missing"),
	})
	require.Len(t, forest, 3)
	assert.Equal(t, "a", forest[0].Node.ID)
	assert.Equal(t, "c", forest[1].Node.ID)
	assert.Equal(t, "e", forest[2].Node.ID)
	require.Len(t, forest[0].Children, 2)
	assert.Equal(t, "b", forest[0].Children[0].Node.ID)
	assert.Equal(t, "d", forest[0].Children[1].Node.ID)
}

func TestWalk_DepthFirst(t *testing.T) {
	forest := Nest([]types.ComponentNode{node("a", ""), node("b", "a"), node("c", "b"), node("d", "")})
	var order []string
	var depths []int
	Walk(forest, func(el *Element, depth int) {
		order = append(order, el.Node.ID)
		depths = append(depths, depth)
	})
	assert.Equal(t, []string{"a", "b", "c", "d"}, order)
	assert.Equal(t, []int{0, 1, 2, 0}, depths)
}

func TestIsDescendant(t *testing.T) {
	nodes := []types.ComponentNode{node("a", ""), node("b", "a"), node("c", "b")}
	assert.True(t, IsDescendant(nodes, "c", "a"))
	assert.True(t, IsDescendant(nodes, "b", "a"))
	assert.False(t, IsDescendant(nodes, "a", "c"))
	assert.False(t, IsDescendant(nodes, "a", "a"))
	assert.Equal(t, 2, Depth(nodes, "c"))
}

func TestIsDescendant_TerminatesOnCycle(t *testing.T) {
	nodes := []types.ComponentNode{node("a", "b"), node("b", "a")}
	assert.True(t, IsDescendant(nodes, "a", "b"))
	assert.False(t, IsDescendant(nodes, "a", "zzz"))
}

func TestRepair(t *testing.T) {
	out := Repair([]types.ComponentNode{
		node("a", "b"),
		node("b", "a"),
		node("c", "c"),
		node("d", "nowhere"),
		node("a", ""),
		{Type: "Card"},
	}, nil)
	require.Len(t, out, 4)
	for _, n := range out {
		assert.False(t, IsDescendant(out, n.ID, n.ID))
	}
	assert.True(t, out[0].IsRoot())
	assert.Equal(t, "a", out[1].Parent())
	assert.True(t, out[2].IsRoot())
	assert.True(t, out[3].IsRoot())
}

func TestRepair_ReissuesDuplicates(t *testing.T) {
	out := Repair([]types.ComponentNode{node("a", ""), node("a", "a"), {Type: "Card"}}, idgen.Sequence("x"))
	require.Len(t, out, 3)
	assert.Equal(t, []string{"a", "x1", "x2"}, []string{out[0].ID, out[1].ID, out[2].ID})
	assert.Equal(t, "a", out[1].Parent())
}

func TestSubtree(t *testing.T) {
	nodes := []types.ComponentNode{node("a", ""), node("b", "a"), node("c", "b"), node("d", "")}
	set := Subtree(nodes, "a")
	assert.Equal(t, map[string]bool{"a": true, "b": true, "c": true}, set)
}
