package game

import (
	"testing"

	"pgregory.net/rapid"
)

func historyOf(inputs ...InputFlags) InputHistory {
	var h InputHistory
	for _, f := range inputs {
		h.Push(Input(f))
	}
	return h
}

func TestInputHistoryGet(t *testing.T) {
	h := historyOf(InputLeft, InputRight, InputUp)

	if got := h.Get(0); got.Flags != InputUp {
		t.Errorf("Get(0) = %v, want up", got.Flags)
	}
	if got := h.Get(2); got.Flags != InputLeft {
		t.Errorf("Get(2) = %v, want left", got.Flags)
	}
	for _, n := range []int{-1, 3, 63, 64, 1000} {
		if got := h.Get(n); got != (PlayerInput{}) {
			t.Errorf("Get(%d) = %v, want no input", n, got.Flags)
		}
	}
}

func TestInputHistoryWrap(t *testing.T) {
	var h InputHistory
	for i := 0; i < HistoryCapacity+10; i++ {
		f := InputNone
		if i%2 == 0 {
			f = InputDown
		}
		h.Push(Input(f))
	}
	if h.Len() != HistoryCapacity {
		t.Fatalf("Len = %d, want %d", h.Len(), HistoryCapacity)
	}
	// last push was i = 73, odd
	if h.Get(0).Has(InputDown) {
		t.Error("newest input should be empty")
	}
	if !h.Get(1).Has(InputDown) {
		t.Error("second newest input should be down")
	}
	if h.Get(HistoryCapacity) != (PlayerInput{}) {
		t.Error("Get(capacity) should miss")
	}
}

func TestInputHistoryPressedRecently(t *testing.T) {
	h := historyOf(InputLightAttack, InputNone, InputNone, InputNone)

	tests := []struct {
		within int
		want   bool
	}{
		{0, false},
		{3, false}, // press is 3 ticks ago, outside [0,3)
		{-1, false},
		{4, false}, // window must be shorter than the history
	}
	for _, tt := range tests {
		if got := h.PressedRecently(InputLightAttack, tt.within); got != tt.want {
			t.Errorf("PressedRecently(within=%d) = %v, want %v", tt.within, got, tt.want)
		}
	}

	h.Push(Input(InputNone))
	if h.PressedRecently(InputLightAttack, 4) {
		t.Error("press 4 ticks ago is outside a 4 tick window")
	}

	// The window has to be shorter than the history, so one older input is needed.
	h = historyOf(InputNone, InputLightAttack, InputNone, InputNone, InputNone)
	if !h.PressedRecently(InputLightAttack, 4) {
		t.Error("press 3 ticks ago should be inside a 4 tick window of a 5 tick history")
	}
}

func TestInputHistoryPressedAndReleased(t *testing.T) {
	tests := []struct {
		name   string
		inputs []InputFlags
		within int
		want   bool
	}{
		{"press release press", []InputFlags{InputNone, InputUp, InputNone, InputUp}, 3, true},
		{"held through", []InputFlags{InputNone, InputUp, InputUp, InputUp}, 3, false},
		{"single press", []InputFlags{InputNone, InputNone, InputUp, InputNone}, 3, false},
		{"release only at the end", []InputFlags{InputNone, InputUp, InputUp, InputNone}, 3, false},
		{"second press outside window", []InputFlags{InputUp, InputNone, InputUp, InputNone, InputNone}, 3, false},
		{"window too long", []InputFlags{InputUp, InputNone, InputUp}, 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := historyOf(tt.inputs...)
			if got := h.PressedAndReleasedRecently(InputUp, tt.within); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInputHistoryHeldRecently(t *testing.T) {
	tests := []struct {
		name   string
		inputs []InputFlags
		long   int
		within int
		want   bool
	}{
		{"run long enough", []InputFlags{InputNone, InputDown, InputDown, InputDown, InputNone}, 3, 4, true},
		{"gap resets run", []InputFlags{InputNone, InputDown, InputDown, InputNone, InputDown}, 3, 4, false},
		{"run outside window", []InputFlags{InputDown, InputDown, InputDown, InputNone, InputNone, InputNone}, 3, 3, false},
		{"single tick hold", []InputFlags{InputNone, InputNone, InputDown}, 1, 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := historyOf(tt.inputs...)
			if got := h.HeldRecently(InputDown, tt.long, tt.within); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInputHistoryValueCopy(t *testing.T) {
	h := historyOf(InputLeft)
	snap := h
	h.Push(Input(InputRight))
	if snap.Len() != 1 || snap.Get(0).Flags != InputLeft {
		t.Error("copy should not see later pushes")
	}
}

func TestPropertyInputHistorySafeMiss(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 3*HistoryCapacity).Draw(t, "pushes")
		var h InputHistory
		for i := 0; i < n; i++ {
			h.Push(Input(InputFlags(rapid.Uint16().Draw(t, "flags"))))
		}
		framesAgo := rapid.OneOf(
			rapid.IntRange(-1000, -1),
			rapid.IntRange(HistoryCapacity, 10*HistoryCapacity),
			rapid.IntRange(h.Len(), h.Len()+HistoryCapacity),
		).Draw(t, "framesAgo")
		if got := h.Get(framesAgo); got != (PlayerInput{}) {
			t.Fatalf("Get(%d) with %d recorded = %v", framesAgo, h.Len(), got)
		}
		within := rapid.IntRange(h.Len(), h.Len()+10).Draw(t, "within")
		if h.PressedRecently(InputLeft, within) || h.HeldRecently(InputLeft, 1, within) ||
			h.PressedAndReleasedRecently(InputLeft, within) {
			t.Fatalf("window %d over %d recorded should never match", within, h.Len())
		}
	})
}

func TestPropertyInputHistoryMatchesSlice(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pushed := rapid.SliceOfN(rapid.Uint16(), 0, 2*HistoryCapacity).Draw(t, "inputs")
		var h InputHistory
		for _, f := range pushed {
			h.Push(Input(InputFlags(f)))
		}
		for i := 0; i < h.Len(); i++ {
			want := InputFlags(pushed[len(pushed)-1-i])
			if got := h.Get(i).Flags; got != want {
				t.Fatalf("Get(%d) = %v, want %v", i, got, want)
			}
		}
	})
}

func BenchmarkInputHistoryHeldRecently(b *testing.B) {
	var h InputHistory
	for i := 0; i < HistoryCapacity; i++ {
		h.Push(Input(InputDown))
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = h.HeldRecently(InputDown, 60, 63)
	}
}
