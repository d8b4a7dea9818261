package tree

import (
	"github.com/cdrslab/fundam-builder/internal/idgen"
	"github.com/cdrslab/fundam-builder/internal/types"
)

// Children returns the direct children of parentID in display order.
// An empty parentID lists the roots.
func Children(nodes []types.ComponentNode, parentID string) []types.ComponentNode {
	var out []types.ComponentNode
	for _, n := range nodes {
		if n.Parent() == parentID {
			out = append(out, n)
		}
	}
	return out
}

// Subtree returns the id set of root and every node whose parent chain
// reaches it.
func Subtree(nodes []types.ComponentNode, root string) map[string]bool {
	kids := make(map[string][]string)
	for _, n := range nodes {
		if p := n.Parent(); p != "" {
			kids[p] = append(kids[p], n.ID)
		}
	}
	set := map[string]bool{root: true}
	queue := []string{root}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, c := range kids[id] {
			if !set[c] {
				set[c] = true
				queue = append(queue, c)
			}
		}
	}
	return set
}

// IsDescendant reports whether id sits below ancestor. The walk follows
// parent links upward and stops after len(nodes) steps, so a corrupted
// cyclic input cannot hang it.
func IsDescendant(nodes []types.ComponentNode, id, ancestor string) bool {
	parent := make(map[string]string, len(nodes))
	for _, n := range nodes {
		parent[n.ID] = n.Parent()
	}
	cur := parent[id]
	for steps := 0; cur != "" && steps <= len(nodes); steps++ {
		if cur == ancestor {
			return true
		}
		cur = parent[cur]
	}
	return false
}

// Depth returns the number of ancestors of id.
func Depth(nodes []types.ComponentNode, id string) int {
	parent := make(map[string]string, len(nodes))
	for _, n := range nodes {
		parent[n.ID] = n.Parent()
	}
	d := 0
	for cur := parent[id]; cur != "" && d <= len(nodes); cur = parent[cur] {
		d++
	}
	return d
}

// Element is a node with its children resolved, the nested form used by
// the code generator and the preview renderer.
type Element struct {
	Node     types.ComponentNode
	Children []*Element
}

// Nest turns the flat collection into a forest, keeping sibling order.
// Nodes whose parent is missing become roots.
func Nest(nodes []types.ComponentNode) []*Element {
	byID := make(map[string]*Element, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = &Element{Node: n}
	}
	var roots []*Element
	for _, n := range nodes {
		el := byID[n.ID]
		if p, ok := byID[n.Parent()]; ok && n.Parent() != n.ID {
			p.Children = append(p.Children, el)
			continue
		}
		roots = append(roots, el)
	}
	return roots
}

// Walk visits elements depth-first in display order.
func Walk(els []*Element, fn func(el *Element, depth int)) {
	var visit func(es []*Element, depth int)
	visit = func(es []*Element, depth int) {
		for _, e := range es {
			fn(e, depth)
			visit(e.Children, depth+1)
		}
	}
	visit(els, 0)
}

// Repair returns a copy of nodes that satisfies the tree invariants.
// Nodes with an empty or repeated id get a fresh one from newID, or are
// dropped when newID is nil. Dangling parents are promoted to root, and so
// is any node caught in a parent cycle.
func Repair(nodes []types.ComponentNode, newID idgen.Generator) []types.ComponentNode {
	seen := make(map[string]bool, len(nodes))
	out := make([]types.ComponentNode, 0, len(nodes))
	for _, n := range nodes {
		if n.ID == "" || seen[n.ID] {
			if newID == nil {
				continue
			}
			n.ID = newID()
		}
		seen[n.ID] = true
		out = append(out, n.Clone())
	}
	for i := range out {
		if p := out[i].Parent(); p != "" && !seen[p] {
			out[i].ParentID = nil
		}
	}
	for i := range out {
		if out[i].Parent() == out[i].ID || IsDescendant(out, out[i].Parent(), out[i].ID) {
			out[i].ParentID = nil
		}
	}
	return out
}
