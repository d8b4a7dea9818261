package codesync

import (
	"strconv"

	"github.com/cdrslab/fundam-builder/internal/types"
)

// Reconcile carries ids from prev over to next, a freshly parsed tree. A
// node keeps its previous id when its parent was matched, its type is the
// same and it sits at the same index among siblings of that type. The
// previous display name comes along with the id. Unmatched nodes keep
// their fresh ids. next must list parents before their children, as
// Parse does.
func Reconcile(prev, next []types.ComponentNode) []types.ComponentNode {
	prevByKey := make(map[string]types.ComponentNode, len(prev))
	seen := map[string]int{}
	for _, n := range prev {
		k := slotKey(n.Parent(), n.Type, seen)
		prevByKey[k] = n
	}

	out := make([]types.ComponentNode, len(next))
	ids := make(map[string]string, len(next)) // fresh id -> final id
	used := map[string]bool{}
	seen = map[string]int{}
	for i, n := range next {
		c := n.Clone()
		parent := n.Parent()
		if mapped, ok := ids[parent]; ok {
			parent = mapped
		}
		c.ParentID = types.StringPtr(parent)

		k := slotKey(parent, n.Type, seen)
		if old, ok := prevByKey[k]; ok && !used[old.ID] {
			used[old.ID] = true
			c.ID = old.ID
			c.Name = old.Name
		}
		ids[n.ID] = c.ID
		out[i] = c
	}
	return out
}

// slotKey identifies a node by parent, type and its index among
// same-type siblings, counting with seen.
func slotKey(parent, typ string, seen map[string]int) string {
	base := parent + "\x00" + typ
	idx := seen[base]
	seen[base] = idx + 1
	return base + "\x00" + strconv.Itoa(idx)
}
