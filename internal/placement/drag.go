package placement

import (
	"image"
	"sync"

	"github.com/cdrslab/fundam-builder/internal/tree"
	"github.com/cdrslab/fundam-builder/internal/types"
)

// Style is how the hover indicator is drawn.
type Style string

const (
	StyleBarTop    Style = "bar-top"
	StyleBarBottom Style = "bar-bottom"
	StyleOverlay   Style = "overlay"
)

// Indicator is the visual hint shown while hovering a valid target.
type Indicator struct {
	TargetID string         `json:"targetId"`
	Kind     types.DropKind `json:"kind"`
	Style    Style          `json:"style"`
}

func indicatorFor(pos types.DropPosition) Indicator {
	ind := Indicator{TargetID: pos.TargetID, Kind: pos.Kind}
	switch pos.Kind {
	case types.DropBefore:
		ind.Style = StyleBarTop
	case types.DropAfter:
		ind.Style = StyleBarBottom
	default:
		ind.Style = StyleOverlay
	}
	return ind
}

// Source is what is being dragged: a palette entry (Type set) or an
// existing node (NodeID set).
type Source struct {
	Type   string         `json:"type,omitempty"`
	Props  map[string]any `json:"props,omitempty"`
	NodeID string         `json:"nodeId,omitempty"`
}

// FromPalette reports whether the source is a palette entry.
func (s Source) FromPalette() bool {
	return s.NodeID == ""
}

// Drag tracks one drag gesture against a store. Hovering only moves the
// indicator; the tree changes on Drop or DropOnCanvas. Whenever the drag
// is not active there is no indicator.
type Drag struct {
	mu        sync.Mutex
	store     *tree.Store
	inset     int
	dragging  bool
	source    Source
	indicator *Indicator
}

// NewDrag creates an idle drag tracker.
func NewDrag(store *tree.Store, inset int) *Drag {
	return &Drag{store: store, inset: inset}
}

// Begin starts a gesture. A node source must exist in the store; a
// palette source must name a type.
func (d *Drag) Begin(src Source) bool {
	if src.FromPalette() && src.Type == "" {
		return false
	}
	if !src.FromPalette() {
		if _, ok := d.store.Get(src.NodeID); !ok {
			return false
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dragging = true
	d.source = src
	d.indicator = nil
	return true
}

// Hover updates the indicator for the pointer over box of node targetID.
// It returns the indicator, or false when the pointer is over no valid
// target, in which case any previous indicator is cleared.
func (d *Drag) Hover(targetID string, box image.Rectangle, p image.Point) (Indicator, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	pos, ok := d.resolve(targetID, box, p)
	if !ok {
		d.indicator = nil
		return Indicator{}, false
	}
	ind := indicatorFor(pos)
	d.indicator = &ind
	return ind, true
}

// Leave clears the indicator when the pointer leaves the node it is on.
func (d *Drag) Leave(targetID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.indicator != nil && d.indicator.TargetID == targetID {
		d.indicator = nil
	}
}

// Drop realizes the drop for the pointer released over targetID and ends
// the gesture. It returns the id of the added or moved node.
func (d *Drag) Drop(targetID string, box image.Rectangle, p image.Point) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	defer d.reset()
	pos, ok := d.resolve(targetID, box, p)
	if !ok {
		return "", false
	}
	return d.apply(&pos)
}

// DropOnCanvas drops onto the canvas background, appending as the last
// root, and ends the gesture.
func (d *Drag) DropOnCanvas() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	defer d.reset()
	if !d.dragging {
		return "", false
	}
	return d.apply(nil)
}

// End cancels the gesture.
func (d *Drag) End() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
}

// Indicator returns the current indicator.
func (d *Drag) Indicator() (Indicator, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.indicator == nil {
		return Indicator{}, false
	}
	return *d.indicator, true
}

// Dragging reports whether a gesture is active.
func (d *Drag) Dragging() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dragging
}

func (d *Drag) reset() {
	d.dragging = false
	d.source = Source{}
	d.indicator = nil
}

// resolve must be called with mu held.
func (d *Drag) resolve(targetID string, box image.Rectangle, p image.Point) (types.DropPosition, bool) {
	if !d.dragging {
		return types.DropPosition{}, false
	}
	if !d.source.FromPalette() {
		if targetID == d.source.NodeID || tree.IsDescendant(d.store.Nodes(), targetID, d.source.NodeID) {
			return types.DropPosition{}, false
		}
	}
	t, ok := TargetFor(d.store, targetID, box)
	if !ok {
		return types.DropPosition{}, false
	}
	return Compute(t, p, d.inset)
}

func (d *Drag) apply(pos *types.DropPosition) (string, bool) {
	if d.source.FromPalette() {
		id := d.store.Add(d.source.Type, d.source.Props, pos)
		return id, id != ""
	}
	if !d.store.Move(d.source.NodeID, pos) {
		return "", false
	}
	return d.source.NodeID, true
}
