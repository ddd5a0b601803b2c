package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fightcore/internal/fixmath"
)

type tag struct {
	attack bool
	name   string
}

func attackOnBody(a, b *Box[tag]) bool { return a.Props.attack && !b.Props.attack }

func TestWorldBoxesKeepOrder(t *testing.T) {
	w := NewWorld[tag](8)
	w.AddBox(7, fixmath.VInt(0, 0), fixmath.VInt(1, 1), tag{name: "a"})
	w.AddBox(3, fixmath.VInt(5, 0), fixmath.VInt(1, 1), tag{name: "b"})
	w.AddBox(7, fixmath.VInt(1, 0), fixmath.VInt(1, 1), tag{name: "c"})

	assert.Equal(t, []int{7, 3}, w.Handles())
	boxes := w.Boxes(7)
	require.Len(t, boxes, 2)
	assert.Equal(t, "a", boxes[0].Props.name)
	assert.Equal(t, "c", boxes[1].Props.name)
	assert.Nil(t, w.Boxes(99))
	assert.Equal(t, 3, w.Len())

	w.Clear()
	assert.Equal(t, 0, w.Len())
	assert.Empty(t, w.Boxes(7))
	assert.Equal(t, []int{7, 3}, w.Handles(), "handles survive Clear")

	w.Reset()
	assert.Empty(t, w.Handles())
}

func TestBoxOverlapIncludesEdges(t *testing.T) {
	a := Box[tag]{Center: fixmath.VInt(0, 0), Size: fixmath.VInt(2, 2)}
	touching := Box[tag]{Center: fixmath.VInt(2, 0), Size: fixmath.VInt(2, 2)}
	apart := Box[tag]{Center: fixmath.VFloat(2.01, 0), Size: fixmath.VInt(2, 2)}
	above := Box[tag]{Center: fixmath.VInt(0, 3), Size: fixmath.VInt(2, 2)}

	assert.True(t, a.Overlaps(&touching))
	assert.False(t, a.Overlaps(&apart))
	assert.False(t, a.Overlaps(&above), "x overlap alone is not enough")
}

func TestOverlapsFiltersAndOrders(t *testing.T) {
	w := NewWorld[tag](8)
	w.AddBox(0, fixmath.VInt(0, 0), fixmath.VInt(2, 2), tag{name: "body0"})
	w.AddBox(1, fixmath.VInt(1, 0), fixmath.VInt(2, 2), tag{name: "body1"})
	w.AddBox(0, fixmath.VInt(1, 0), fixmath.VInt(1, 1), tag{attack: true, name: "fist0"})
	w.AddBox(1, fixmath.VInt(9, 0), fixmath.VInt(1, 1), tag{attack: true, name: "fist1"})

	contacts := w.Overlaps(attackOnBody)
	require.Len(t, contacts, 1)
	assert.Equal(t, "fist0", contacts[0].A.Props.name)
	assert.Equal(t, "body1", contacts[0].B.Props.name)
	assert.Equal(t, 0, contacts[0].A.Handle)
}

func TestOverlapsSkipsSameHandle(t *testing.T) {
	w := NewWorld[tag](4)
	w.AddBox(0, fixmath.VInt(0, 0), fixmath.VInt(2, 2), tag{name: "body"})
	w.AddBox(0, fixmath.VInt(0, 0), fixmath.VInt(1, 1), tag{attack: true, name: "fist"})
	assert.Empty(t, w.Overlaps(attackOnBody))
}

func TestOverlapsIndependentOfMotionHistory(t *testing.T) {
	// The same final layout must give the same contacts no matter what the
	// previous tick's endpoint order was.
	layout := func(w *World[tag]) {
		w.Clear()
		w.AddBox(0, fixmath.VInt(0, 0), fixmath.VInt(2, 2), tag{name: "body0"})
		w.AddBox(1, fixmath.VInt(1, 0), fixmath.VInt(2, 2), tag{name: "body1"})
		w.AddBox(0, fixmath.VInt(1, 0), fixmath.VInt(2, 1), tag{attack: true, name: "fist0"})
		w.AddBox(1, fixmath.VInt(0, 0), fixmath.VInt(2, 1), tag{attack: true, name: "fist1"})
	}

	fresh := NewWorld[tag](8)
	layout(fresh)
	want := append([]Contact[tag](nil), fresh.Overlaps(attackOnBody)...)
	require.Len(t, want, 2)

	moved := NewWorld[tag](8)
	moved.AddBox(0, fixmath.VInt(-5, 0), fixmath.VInt(2, 2), tag{})
	moved.AddBox(1, fixmath.VInt(5, 0), fixmath.VInt(2, 2), tag{})
	moved.Overlaps(attackOnBody)
	layout(moved)
	assert.Equal(t, want, moved.Overlaps(attackOnBody))
}

func TestSweepAndPrunePairs(t *testing.T) {
	s := NewSweepAndPrune(4)
	pairs := s.Update([]Interval{
		{fixmath.FromInt(0), fixmath.FromInt(2)},
		{fixmath.FromInt(5), fixmath.FromInt(6)},
		{fixmath.FromInt(1), fixmath.FromInt(3)},
		{fixmath.FromInt(2), fixmath.FromInt(5)},
	})
	assert.Equal(t, []Pair{{0, 2}, {0, 3}, {1, 3}, {2, 3}}, pairs)
}

func BenchmarkWorldOverlaps(b *testing.B) {
	w := NewWorld[tag](8)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		w.Clear()
		w.AddBox(0, fixmath.VInt(-1, 0), fixmath.VInt(1, 2), tag{})
		w.AddBox(1, fixmath.VInt(1, 0), fixmath.VInt(1, 2), tag{})
		w.AddBox(0, fixmath.VFloat(0.25, 0), fixmath.VFloat(1.5, 0.75), tag{attack: true})
		_ = w.Overlaps(attackOnBody)
	}
}
