package codesync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile_KeepsIDsAcrossEdits(t *testing.T) {
	before := newParser("a").Parse(`
<Card title="Users">
  <Button>Add</Button>
  <Button>Delete</Button>
</Card>`).Nodes
	before[0].Name = "Users card"

	after := newParser("b").Parse(`
<Card title="All users">
  <Button>Add</Button>
  <Button danger>Delete</Button>
  <Input />
</Card>
<Divider />`).Nodes

	got := Reconcile(before, after)
	require.Len(t, got, 5)

	assert.Equal(t, "a1", got[0].ID)
	assert.Equal(t, "Users card", got[0].Name)
	assert.Equal(t, "All users", got[0].Props["title"])
	assert.Equal(t, "a2", got[1].ID)
	assert.Equal(t, "a3", got[2].ID)
	assert.Equal(t, true, got[2].Props["danger"])
	assert.Equal(t, "b4", got[3].ID, "new node keeps its fresh id")
	assert.Equal(t, "b5", got[4].ID)

	for _, n := range got[1:4] {
		assert.Equal(t, "a1", n.Parent())
	}
	assert.True(t, got[4].IsRoot())
}

func TestReconcile_TypeChangeBreaksMatch(t *testing.T) {
	before := newParser("a").Parse(`<Card><Button /></Card>`).Nodes
	after := newParser("b").Parse(`<Space><Button /></Space>`).Nodes

	got := Reconcile(before, after)
	require.Len(t, got, 2)
	assert.Equal(t, "b1", got[0].ID)
	assert.Equal(t, "b2", got[1].ID, "children of an unmatched parent stay fresh")
	assert.Equal(t, "b1", got[1].Parent())
}

func TestReconcile_DoesNotMutateInput(t *testing.T) {
	before := newParser("a").Parse(`<Card><Button /></Card>`).Nodes
	after := newParser("b").Parse(`<Card><Button /></Card>`).Nodes

	got := Reconcile(before, after)
	assert.Equal(t, "a2", got[1].ID)
	assert.Equal(t, "b1", after[1].Parent())
	assert.Equal(t, "b2", after[1].ID)
}
