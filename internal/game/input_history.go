package game

// HistoryCapacity is the number of ticks an InputHistory remembers.
const HistoryCapacity = 64

// InputHistory is a fixed-size ring of one player's most recent inputs, used for
// move detection (buffered presses, charge inputs). It is a value type: assigning it
// copies the whole buffer, which is how the match runner checkpoints it.
//
// Every query treats out-of-range requests as "no input" so detection logic can run
// unconditionally from the first tick.
type InputHistory struct {
	buf   [HistoryCapacity]PlayerInput
	front int // next write slot
	count int // saturates at HistoryCapacity
}

// Push records this tick's input, overwriting the oldest once full.
func (h *InputHistory) Push(in PlayerInput) {
	h.buf[h.front] = in
	h.front = (h.front + 1) % HistoryCapacity
	if h.count < HistoryCapacity {
		h.count++
	}
}

// Len returns how many inputs are recorded.
func (h *InputHistory) Len() int { return h.count }

// Reset forgets every recorded input.
func (h *InputHistory) Reset() { *h = InputHistory{} }

// Get returns the input pushed framesAgo ticks ago (0 = most recent). Negative or
// unrecorded offsets return the zero input.
func (h *InputHistory) Get(framesAgo int) PlayerInput {
	if framesAgo < 0 || framesAgo >= h.count {
		return PlayerInput{}
	}
	return h.buf[(h.front-1-framesAgo+HistoryCapacity)%HistoryCapacity]
}

// inWindow guards every windowed query. A window must be non-negative and strictly
// shorter than the recorded history.
func (h *InputHistory) inWindow(within int) bool {
	return within >= 0 && within < h.count
}

// PressedRecently reports whether flag was set in any of the last within inputs.
func (h *InputHistory) PressedRecently(flag InputFlags, within int) bool {
	if !h.inWindow(within) {
		return false
	}
	for i := 0; i < within; i++ {
		if h.Get(i).Has(flag) {
			return true
		}
	}
	return false
}

// PressedAndReleasedRecently scans the window oldest to newest and reports whether
// flag was pressed, released, then pressed again. Two presses with no gap between
// them do not count.
func (h *InputHistory) PressedAndReleasedRecently(flag InputFlags, within int) bool {
	if !h.inWindow(within) {
		return false
	}
	pressed, released := false, false
	for i := within - 1; i >= 0; i-- {
		if h.Get(i).Has(flag) {
			if released {
				return true
			}
			pressed = true
			continue
		}
		if pressed {
			released = true
		}
	}
	return false
}

// HeldRecently reports whether flag was held for at least long consecutive ticks
// somewhere in the last within inputs. The run counter resets on any gap.
func (h *InputHistory) HeldRecently(flag InputFlags, long, within int) bool {
	if !h.inWindow(within) {
		return false
	}
	run := 0
	for i := within - 1; i >= 0; i-- {
		if !h.Get(i).Has(flag) {
			run = 0
			continue
		}
		run++
		if run >= long {
			return true
		}
	}
	return false
}
