package replay

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"fightcore/internal/game"
)

// Writer appends records to a replay. It satisfies the match runner's recorder.
type Writer struct {
	out    *bufio.Writer
	closer io.Closer
	buf    []byte
	next   game.Tick
}

// NewWriter writes the header to w and returns a writer for the tick records.
func NewWriter(w io.Writer, h Header) (*Writer, error) {
	if err := h.check(); err != nil {
		return nil, err
	}
	out := bufio.NewWriter(w)
	if err := writeRecord(out, RecordHeader, encodeHeader(&h)); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return &Writer{out: out, next: game.FirstTick}, nil
}

// Create opens path for writing, truncating it, and writes the header.
func Create(path string, h Header) (*Writer, error) {
	if err := h.check(); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f, h)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

// WriteTick appends one tick. Ticks must arrive in order without gaps.
func (w *Writer) WriteTick(tick game.Tick, frames []game.InputFrame) error {
	if tick != w.next {
		return fmt.Errorf("tick %d out of order, expected %d", tick, w.next)
	}
	w.buf = appendTick(w.buf[:0], tick, frames)
	if err := writeRecord(w.out, RecordTick, w.buf); err != nil {
		return err
	}
	w.next++
	return nil
}

// Finish appends the end record.
func (w *Writer) Finish(finalTick game.Tick, checksum uint64) error {
	w.buf = appendEnd(w.buf[:0], EndRecord{FinalTick: finalTick, Checksum: checksum})
	if err := writeRecord(w.out, RecordEnd, w.buf); err != nil {
		return err
	}
	return w.out.Flush()
}

// Close flushes buffered records and closes the file opened by Create.
func (w *Writer) Close() error {
	err := w.out.Flush()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Reader reads a replay written by Writer.
type Reader struct {
	in     *bufio.Reader
	header Header
	body   []byte
}

// NewReader reads and validates the header.
func NewReader(r io.Reader) (*Reader, error) {
	in := bufio.NewReader(r)
	typ, body, err := readRecord(in, nil)
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty replay", ErrCorrupt)
	}
	if err != nil {
		return nil, err
	}
	if typ != RecordHeader {
		return nil, fmt.Errorf("%w: first record has type %#x", ErrCorrupt, typ)
	}
	h, err := decodeHeader(body)
	if err != nil {
		return nil, err
	}
	return &Reader{in: in, header: h}, nil
}

// Header returns the recorded match header.
func (r *Reader) Header() Header { return r.header }

// Next returns the next *TickRecord or *EndRecord, or io.EOF at the end of input.
func (r *Reader) Next() (interface{}, error) {
	typ, body, err := readRecord(r.in, r.body)
	if err != nil {
		return nil, err
	}
	r.body = body

	switch typ {
	case RecordTick:
		rec, err := decodeTick(body)
		if err != nil {
			return nil, err
		}
		return &rec, nil
	case RecordEnd:
		rec, err := decodeEnd(body)
		if err != nil {
			return nil, err
		}
		return &rec, nil
	default:
		return nil, fmt.Errorf("%w: unexpected record type %#x", ErrCorrupt, typ)
	}
}

// Result is the outcome of playing a replay.
type Result struct {
	Ticks    int
	Final    game.GameState
	Checksum uint64
	Verified bool // an end record was present and matched
}

// Play re-runs a recording on a fresh simulation built from cfg. onTick, if not
// nil, sees the state after every tick.
func Play(cfg game.Config, r *Reader, onTick func(*game.GameState)) (Result, error) {
	h := r.Header()
	for i := range cfg.Characters {
		if d := cfg.Characters[i].Digest(); d != h.CharacterDigests[i] {
			return Result{}, fmt.Errorf("%w: slot %d has digest %016x, recorded %016x", ErrConfigMismatch, i, d, h.CharacterDigests[i])
		}
	}

	sim := game.NewSimulation(cfg)
	if err := sim.Init(h.Roster); err != nil {
		return Result{}, fmt.Errorf("init from recorded roster: %w", err)
	}
	defer sim.Shutdown()

	var res Result
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, err
		}

		switch rec := rec.(type) {
		case *TickRecord:
			if rec.Tick != sim.Tick() {
				return res, fmt.Errorf("%w: tick %d where %d was expected", ErrCorrupt, rec.Tick, sim.Tick())
			}
			sim.Advance(rec.Frames)
			res.Ticks++
			if onTick != nil {
				st := sim.State()
				onTick(&st)
			}
		case *EndRecord:
			if rec.FinalTick != sim.Tick() || rec.Checksum != sim.Checksum() {
				return res, fmt.Errorf("%w at tick %d: got %016x, recorded %016x at tick %d",
					ErrChecksumMismatch, sim.Tick(), sim.Checksum(), rec.Checksum, rec.FinalTick)
			}
			res.Verified = true
		}
	}

	res.Final = sim.State()
	res.Checksum = sim.Checksum()
	return res, nil
}
