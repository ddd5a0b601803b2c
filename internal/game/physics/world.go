// Package physics is the box query structure fighters register hit and hurt boxes
// into each tick. It answers one question: which boxes overlap.
//
// Everything is deterministic. Boxes keep registration order, handles keep first
// registration order, and overlap results come out sorted by box index, so two peers
// that registered the same boxes read the same contacts in the same order.
package physics

import (
	"github.com/elliotchance/orderedmap/v2"

	"fightcore/internal/fixmath"
)

// Box is an axis-aligned box in world space owned by handle.
type Box[P any] struct {
	Handle int
	Center fixmath.Vec2
	Size   fixmath.Vec2 // full width and height
	Props  P
}

// Min returns the lower-left corner.
func (b *Box[P]) Min() fixmath.Vec2 { return b.Center.Sub(b.half()) }

// Max returns the upper-right corner.
func (b *Box[P]) Max() fixmath.Vec2 { return b.Center.Add(b.half()) }

func (b *Box[P]) half() fixmath.Vec2 { return b.Size.Scale(fixmath.Half) }

// Overlaps reports whether b and o intersect. Touching edges count.
func (b *Box[P]) Overlaps(o *Box[P]) bool {
	bmin, bmax := b.Min(), b.Max()
	omin, omax := o.Min(), o.Max()
	return bmin.X <= omax.X && omin.X <= bmax.X &&
		bmin.Y <= omax.Y && omin.Y <= bmax.Y
}

// Contact is an overlap between two boxes of different handles, ordered as the
// match function accepted them.
type Contact[P any] struct {
	A, B Box[P]
}

// World holds the boxes registered for the current tick.
type World[P any] struct {
	boxes    []Box[P]
	byHandle *orderedmap.OrderedMap[int, []int] // handle -> indices into boxes

	broad     *SweepAndPrune
	intervals []Interval
	contacts  []Contact[P]
}

// NewWorld creates an empty world with room for capacity boxes.
func NewWorld[P any](capacity int) *World[P] {
	return &World[P]{
		boxes:     make([]Box[P], 0, capacity),
		byHandle:  orderedmap.NewOrderedMap[int, []int](),
		broad:     NewSweepAndPrune(capacity),
		intervals: make([]Interval, 0, capacity),
		contacts:  make([]Contact[P], 0, capacity),
	}
}

// AddBox registers a box for handle.
func (w *World[P]) AddBox(handle int, center, size fixmath.Vec2, props P) {
	idx := len(w.boxes)
	w.boxes = append(w.boxes, Box[P]{Handle: handle, Center: center, Size: size, Props: props})
	list, _ := w.byHandle.Get(handle)
	w.byHandle.Set(handle, append(list, idx))
}

// Clear drops every box. Known handles stay registered with no boxes so their order
// is stable across ticks.
func (w *World[P]) Clear() {
	w.boxes = w.boxes[:0]
	for el := w.byHandle.Front(); el != nil; el = el.Next() {
		el.Value = el.Value[:0]
	}
}

// Reset forgets handles as well as boxes.
func (w *World[P]) Reset() {
	w.boxes = w.boxes[:0]
	w.byHandle = orderedmap.NewOrderedMap[int, []int]()
}

// Len returns the number of boxes registered this tick.
func (w *World[P]) Len() int { return len(w.boxes) }

// Handles returns every handle in first-registration order.
func (w *World[P]) Handles() []int { return w.byHandle.Keys() }

// Boxes returns a copy of handle's boxes in registration order.
func (w *World[P]) Boxes(handle int) []Box[P] {
	idxs, ok := w.byHandle.Get(handle)
	if !ok {
		return nil
	}
	out := make([]Box[P], 0, len(idxs))
	for _, i := range idxs {
		out = append(out, w.boxes[i])
	}
	return out
}

// Overlaps returns every overlap between boxes of different handles that match
// accepts, checking both orders of each pair. Results are sorted by box index. The
// returned slice is reused by the next call.
func (w *World[P]) Overlaps(match func(a, b *Box[P]) bool) []Contact[P] {
	w.contacts = w.contacts[:0]
	w.intervals = w.intervals[:0]
	for i := range w.boxes {
		w.intervals = append(w.intervals, Interval{Min: w.boxes[i].Min().X, Max: w.boxes[i].Max().X})
	}

	for _, p := range w.broad.Update(w.intervals) {
		a, b := &w.boxes[p.A], &w.boxes[p.B]
		if a.Handle == b.Handle || !a.Overlaps(b) {
			continue
		}
		if match(a, b) {
			w.contacts = append(w.contacts, Contact[P]{A: *a, B: *b})
		}
		if match(b, a) {
			w.contacts = append(w.contacts, Contact[P]{A: *b, B: *a})
		}
	}
	return w.contacts
}
