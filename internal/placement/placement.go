// Package placement turns pointer geometry over a rendered node into a drop
// instruction and realizes it on a tree store.
package placement

import (
	"image"

	"github.com/cdrslab/fundam-builder/internal/tree"
	"github.com/cdrslab/fundam-builder/internal/types"
)

// DefaultInset is the width in pixels of the edge band around the "inside"
// zone of an empty container.
const DefaultInset = 20

// Target is a rendered node under the pointer.
type Target struct {
	ID          string          `json:"id"`
	Box         image.Rectangle `json:"box"`
	IsContainer bool            `json:"isContainer"`
	HasChildren bool            `json:"hasChildren"`
}

// TargetFor fills container and children state for id from the store.
func TargetFor(s *tree.Store, id string, box image.Rectangle) (Target, bool) {
	n, ok := s.Get(id)
	if !ok {
		return Target{}, false
	}
	return Target{
		ID:          id,
		Box:         box,
		IsContainer: n.IsContainer,
		HasChildren: len(s.Children(id)) > 0,
	}, true
}

// Compute maps a pointer position to a drop position relative to t.
//
// An empty container has a central zone inset from every edge; pointing
// there means inside, elsewhere the vertical midpoint picks before or
// after. A box too small to hold the zone has none. Every other target is
// split into a top quarter (before), a bottom quarter (after) and a middle
// band that means inside for containers and no target for leaves.
//
// A pointer outside the box is never a target. The result depends only on
// the arguments.
func Compute(t Target, p image.Point, inset int) (types.DropPosition, bool) {
	if t.ID == "" || !p.In(t.Box) {
		return types.DropPosition{}, false
	}
	h := t.Box.Dy()
	rel := p.Y - t.Box.Min.Y

	if t.IsContainer && !t.HasChildren {
		if inset >= 0 && t.Box.Dx() > 2*inset && h > 2*inset && p.In(t.Box.Inset(inset)) {
			return types.DropPosition{Kind: types.DropInside, TargetID: t.ID}, true
		}
		if 2*rel < h {
			return types.DropPosition{Kind: types.DropBefore, TargetID: t.ID}, true
		}
		return types.DropPosition{Kind: types.DropAfter, TargetID: t.ID}, true
	}

	switch {
	case 4*rel < h:
		return types.DropPosition{Kind: types.DropBefore, TargetID: t.ID}, true
	case 4*rel >= 3*h:
		return types.DropPosition{Kind: types.DropAfter, TargetID: t.ID}, true
	case t.IsContainer:
		return types.DropPosition{Kind: types.DropInside, TargetID: t.ID}, true
	}
	return types.DropPosition{}, false
}
