// Package tree is the component tree store: the single source of truth for
// one builder session.
//
// Nodes live in a flat ordered slice. A node's parent is its ParentID and
// its position among siblings is its index in the slice filtered by parent.
// Every mutation builds a new slice (copy-on-write), so a slice returned by
// Nodes is a stable snapshot that later mutations never touch.
//
// Mutations on ids that do not exist are silent no-ops. Dragging produces
// dangling references as a matter of course and none of them are errors.
package tree

import (
	"slices"
	"sync"

	"github.com/cdrslab/fundam-builder/internal/idgen"
	"github.com/cdrslab/fundam-builder/internal/registry"
	"github.com/cdrslab/fundam-builder/internal/types"
)

// Op names a kind of tree mutation.
type Op string

const (
	OpAdd     Op = "add"
	OpMove    Op = "move"
	OpUpdate  Op = "update"
	OpRemove  Op = "remove"
	OpSelect  Op = "select"
	OpReplace Op = "replace"
)

// Change describes one applied mutation.
type Change struct {
	Op       Op
	NodeIDs  []string
	Selected string
	Version  uint64
}

// Listener is notified after every applied mutation, outside the store lock.
type Listener func(Change)

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides the node id generator.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(s *Store) { s.newID = gen }
}

// WithListener registers a change listener.
func WithListener(l Listener) Option {
	return func(s *Store) { s.listeners = append(s.listeners, l) }
}

// Store holds one component tree plus the selection pointer.
type Store struct {
	mu        sync.RWMutex
	reg       *registry.Registry
	newID     idgen.Generator
	nodes     []types.ComponentNode
	selected  string
	version   uint64
	listeners []Listener
}

// New creates an empty store backed by the given registry.
func New(reg *registry.Registry, opts ...Option) *Store {
	s := &Store{reg: reg, newID: idgen.Node}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Add creates a node of the given type and returns its id. A nil props map
// takes the registry defaults. With no position the node is appended as the
// last root. The new node becomes selected. When the position names a
// target that does not exist nothing is created and "" is returned.
func (s *Store) Add(typ string, props map[string]any, pos *types.DropPosition) string {
	if props == nil {
		props = s.reg.DefaultProps(typ)
	}
	node := types.ComponentNode{
		ID:          s.newID(),
		Type:        typ,
		Name:        typ,
		Props:       clonePropsShallow(props),
		IsContainer: s.reg.IsContainer(typ),
		IsVisible:   true,
	}

	s.mu.Lock()
	next, ok := insert(s.nodes, node, pos)
	if !ok {
		s.mu.Unlock()
		return ""
	}
	s.nodes = next
	s.selected = node.ID
	ch := s.commit(OpAdd, node.ID)
	s.mu.Unlock()

	s.notify(ch)
	return node.ID
}

// Move relocates an existing node. A nil position appends it as the last
// root. Moving onto a missing target, onto the node itself, or onto one of
// its descendants leaves the tree unchanged. It reports whether the tree
// changed.
func (s *Store) Move(id string, pos *types.DropPosition) bool {
	s.mu.Lock()
	idx := indexOf(s.nodes, id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	if pos != nil {
		if pos.TargetID == id || indexOf(s.nodes, pos.TargetID) < 0 || IsDescendant(s.nodes, pos.TargetID, id) {
			s.mu.Unlock()
			return false
		}
	}

	node := s.nodes[idx]
	rest := slices.Delete(slices.Clone(s.nodes), idx, idx+1)
	next, ok := insert(rest, node, pos)
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.nodes = next
	ch := s.commit(OpMove, id)
	s.mu.Unlock()

	s.notify(ch)
	return true
}

// Select sets the selected id. An empty id clears the selection. The id
// is not checked.
func (s *Store) Select(id string) {
	s.mu.Lock()
	s.selected = id
	ch := s.commit(OpSelect, id)
	s.mu.Unlock()
	s.notify(ch)
}

// UpdateProps shallow-merges partial into the node's props. Keys not in
// partial keep their values. It reports whether the node existed.
func (s *Store) UpdateProps(id string, partial map[string]any) bool {
	s.mu.Lock()
	idx := indexOf(s.nodes, id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	next := slices.Clone(s.nodes)
	n := next[idx].Clone()
	for k, v := range partial {
		n.Props[k] = v
	}
	next[idx] = n
	s.nodes = next
	ch := s.commit(OpUpdate, id)
	s.mu.Unlock()

	s.notify(ch)
	return true
}

// Rename sets a node's display name.
func (s *Store) Rename(id, name string) bool {
	s.mu.Lock()
	idx := indexOf(s.nodes, id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	next := slices.Clone(s.nodes)
	n := next[idx].Clone()
	n.Name = name
	next[idx] = n
	s.nodes = next
	ch := s.commit(OpUpdate, id)
	s.mu.Unlock()

	s.notify(ch)
	return true
}

// Remove deletes the node and all of its descendants in one mutation and
// returns the removed ids. The selection is cleared when it pointed into
// the removed set.
func (s *Store) Remove(id string) []string {
	s.mu.Lock()
	if indexOf(s.nodes, id) < 0 {
		s.mu.Unlock()
		return nil
	}
	doomed := Subtree(s.nodes, id)
	next := make([]types.ComponentNode, 0, len(s.nodes)-len(doomed))
	for _, n := range s.nodes {
		if !doomed[n.ID] {
			next = append(next, n)
		}
	}
	s.nodes = next
	if doomed[s.selected] {
		s.selected = ""
	}
	removed := make([]string, 0, len(doomed))
	for k := range doomed {
		removed = append(removed, k)
	}
	slices.Sort(removed)
	ch := s.commit(OpRemove, removed...)
	s.mu.Unlock()

	s.notify(ch)
	return removed
}

// Replace swaps the whole tree, as after a source re-parse or a page load.
// The incoming nodes are repaired first. The selection survives when its
// id is still present.
func (s *Store) Replace(nodes []types.ComponentNode) {
	fixed := Repair(nodes, s.newID)
	for i := range fixed {
		if s.reg.Recognized(fixed[i].Type) {
			fixed[i].IsContainer = s.reg.IsContainer(fixed[i].Type)
		}
	}

	s.mu.Lock()
	s.nodes = fixed
	if indexOf(s.nodes, s.selected) < 0 {
		s.selected = ""
	}
	ch := s.commit(OpReplace)
	s.mu.Unlock()

	s.notify(ch)
}

// Nodes returns the current snapshot. Callers must not modify it.
func (s *Store) Nodes() []types.ComponentNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodes
}

// Get returns a copy of the node with the given id.
func (s *Store) Get(id string) (types.ComponentNode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := indexOf(s.nodes, id)
	if idx < 0 {
		return types.ComponentNode{}, false
	}
	return s.nodes[idx].Clone(), true
}

// Children returns the direct children of parentID in display order. An
// empty parentID lists the roots.
func (s *Store) Children(parentID string) []types.ComponentNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Children(s.nodes, parentID)
}

// Roots returns the root nodes in display order.
func (s *Store) Roots() []types.ComponentNode {
	return s.Children("")
}

// Descendants returns every node below id, in collection order.
func (s *Store) Descendants(id string) []types.ComponentNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := Subtree(s.nodes, id)
	var out []types.ComponentNode
	for _, n := range s.nodes {
		if n.ID != id && set[n.ID] {
			out = append(out, n)
		}
	}
	return out
}

// Selected returns the selected id, or "".
func (s *Store) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Version increments on every applied mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Len returns the number of nodes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Registry returns the registry the store was built with.
func (s *Store) Registry() *registry.Registry {
	return s.reg
}

// commit must be called with mu held.
func (s *Store) commit(op Op, ids ...string) Change {
	s.version++
	return Change{Op: op, NodeIDs: ids, Selected: s.selected, Version: s.version}
}

func (s *Store) notify(ch Change) {
	for _, l := range s.listeners {
		l(ch)
	}
}

// insert returns a new slice with node placed according to pos. It never
// modifies nodes.
func insert(nodes []types.ComponentNode, node types.ComponentNode, pos *types.DropPosition) ([]types.ComponentNode, bool) {
	if pos == nil {
		node.ParentID = nil
		return append(slices.Clone(nodes), node), true
	}
	ti := indexOf(nodes, pos.TargetID)
	if ti < 0 {
		return nil, false
	}
	target := nodes[ti]
	switch pos.Kind {
	case types.DropInside:
		node.ParentID = types.StringPtr(target.ID)
		return append(slices.Clone(nodes), node), true
	case types.DropBefore:
		node.ParentID = types.StringPtr(target.Parent())
		return slices.Insert(slices.Clone(nodes), ti, node), true
	case types.DropAfter:
		node.ParentID = types.StringPtr(target.Parent())
		return slices.Insert(slices.Clone(nodes), ti+1, node), true
	}
	return nil, false
}

func indexOf(nodes []types.ComponentNode, id string) int {
	if id == "" {
		return -1
	}
	for i := range nodes {
		if nodes[i].ID == id {
			return i
		}
	}
	return -1
}

func clonePropsShallow(p map[string]any) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
