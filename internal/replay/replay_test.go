package replay

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fightcore/internal/game"
	"fightcore/internal/match"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	m.Run()
}

func testHeader() Header {
	c := game.DefaultCharacter()
	return Header{
		MatchID:          uuid.MustParse("6f1c2a52-8d0e-4b8b-9a57-5d4d3b1f2e10"),
		CreatedUnixNano:  1_700_000_000_000_000_000,
		CharacterDigests: [2]uint64{c.Digest(), c.Digest()},
		Roster: game.Roster{Slots: []game.PlayerSlot{
			{Kind: game.PlayerLocal, Handle: "p1"},
			{Kind: game.PlayerSpectator, Handle: "caster"},
			{Kind: game.PlayerRemote, Handle: "p2"},
		}},
	}
}

func TestHeaderAndTicksRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, testHeader())
	require.NoError(t, err)

	ticks := []TickRecord{
		{Tick: 0, Frames: []game.InputFrame{game.Confirmed(game.InputRight), game.Confirmed(game.InputNone)}},
		{Tick: 1, Frames: []game.InputFrame{game.Confirmed(game.InputLightAttack)}},
		{Tick: 2, Frames: []game.InputFrame{}},
		{Tick: 3, Frames: []game.InputFrame{{Input: game.Input(game.InputLeft | game.InputUp), Status: game.StatusPredicted}, game.Confirmed(game.InputDown)}},
	}
	for _, rec := range ticks {
		require.NoError(t, w.WriteTick(rec.Tick, rec.Frames))
	}
	require.NoError(t, w.Finish(4, 0xdeadbeef))

	r, err := NewReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, testHeader(), r.Header())

	for _, want := range ticks {
		got, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, &want, got)
	}
	end, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, &EndRecord{FinalTick: 4, Checksum: 0xdeadbeef}, end)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestWriterRejectsOutOfOrderTicks(t *testing.T) {
	w, err := NewWriter(io.Discard, testHeader())
	require.NoError(t, err)
	require.NoError(t, w.WriteTick(0, nil))
	assert.Error(t, w.WriteTick(2, nil))
	assert.Error(t, w.WriteTick(0, nil))
}

func TestWriterRejectsOversizedRoster(t *testing.T) {
	many := testHeader()
	many.Roster.Slots = make([]game.PlayerSlot, 256)
	for i := range many.Roster.Slots {
		many.Roster.Slots[i] = game.PlayerSlot{Kind: game.PlayerSpectator, Handle: "s"}
	}
	_, err := NewWriter(io.Discard, many)
	assert.ErrorIs(t, err, ErrHeaderTooLarge)

	long := testHeader()
	long.Roster.Slots[1].Handle = strings.Repeat("x", 1<<16)
	_, err = NewWriter(io.Discard, long)
	assert.ErrorIs(t, err, ErrHeaderTooLarge)

	path := filepath.Join(t.TempDir(), "long.replay")
	_, err = Create(path, long)
	assert.ErrorIs(t, err, ErrHeaderTooLarge)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no file is created for a rejected header")

	// 255 slots still fit
	many.Roster.Slots = many.Roster.Slots[:255]
	_, err = NewWriter(io.Discard, many)
	assert.NoError(t, err)
}

func TestReaderRejectsCorruption(t *testing.T) {
	var good bytes.Buffer
	w, err := NewWriter(&good, testHeader())
	require.NoError(t, err)
	require.NoError(t, w.WriteTick(0, []game.InputFrame{game.Confirmed(game.InputUp)}))
	require.NoError(t, w.Close())
	data := good.Bytes()

	tests := []struct {
		name string
		data func() []byte
		want error
	}{
		{"empty", func() []byte { return nil }, ErrCorrupt},
		{"truncated frame", func() []byte { return data[:5] }, ErrCorrupt},
		{"truncated header body", func() []byte { return data[:FrameSize+10] }, ErrCorrupt},
		{"wrong version", func() []byte {
			b := bytes.Clone(data)
			binary.LittleEndian.PutUint16(b[0:2], 99)
			return b
		}, ErrVersion},
		{"oversized", func() []byte {
			b := bytes.Clone(data)
			binary.LittleEndian.PutUint32(b[4:8], MaxRecordSize+1)
			return b
		}, ErrCorrupt},
		{"tick first", func() []byte {
			b := bytes.Clone(data)
			b[2] = RecordTick
			return b
		}, ErrCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(bytes.NewReader(tt.data()))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	// A tick record cut short after its frame is corrupt, not a clean end.
	r, err := NewReader(bytes.NewReader(data[:len(data)-1]))
	require.NoError(t, err)
	_, err = r.Next()
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestDecodeTickRejectsExtraSlots(t *testing.T) {
	body := appendTick(nil, 7, []game.InputFrame{game.Confirmed(game.InputUp)})
	body[4] = 3
	_, err := decodeTick(body)
	assert.ErrorIs(t, err, ErrCorrupt)

	body = append(appendTick(nil, 7, nil), 0xff)
	_, err = decodeTick(body)
	assert.ErrorIs(t, err, ErrCorrupt)
}

// recordMatch runs a scripted match through a runner with a replay writer attached.
func recordMatch(t *testing.T, path string, ticks int) game.GameState {
	t.Helper()
	cfg := game.DefaultConfig()
	roster := game.LocalVersus()
	h := Header{
		MatchID:          uuid.New(),
		CharacterDigests: [2]uint64{cfg.Characters[0].Digest(), cfg.Characters[1].Digest()},
		Roster:           roster,
	}
	w, err := Create(path, h)
	require.NoError(t, err)

	r, err := match.NewRunner(cfg, roster, match.WithRecorder(w), match.WithMatchID(h.MatchID))
	require.NoError(t, err)
	script := []game.InputFlags{game.InputRight, game.InputRight, game.InputLightAttack, game.InputNone, game.InputUp}
	for i := 0; i < ticks; i++ {
		in := []game.InputFrame{game.Confirmed(script[i%len(script)]), game.Confirmed(game.InputLeft)}
		require.NoError(t, r.Step(in))
	}
	// Rewrite recent history so the recording must carry the corrected inputs.
	require.NoError(t, r.Rollback(r.Tick()-3, [][]game.InputFrame{{game.Confirmed(game.InputUp)}}))
	final := r.State()
	require.NoError(t, r.Close())
	require.NoError(t, w.Close())
	return final
}

func TestPlayReproducesRecordedMatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "match.rpl")
	final := recordMatch(t, path, 150)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rd, err := NewReader(f)
	require.NoError(t, err)

	seen := 0
	res, err := Play(game.DefaultConfig(), rd, func(*game.GameState) { seen++ })
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Equal(t, 150, res.Ticks)
	assert.Equal(t, 150, seen)
	assert.Equal(t, final, res.Final)
	assert.Equal(t, final.Checksum(), res.Checksum)
}

func TestPlayRejectsDifferentCharacters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "match.rpl")
	recordMatch(t, path, 10)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rd, err := NewReader(f)
	require.NoError(t, err)

	cfg := game.DefaultConfig()
	cfg.Characters[1].Speed++
	_, err = Play(cfg, rd, nil)
	assert.True(t, errors.Is(err, ErrConfigMismatch))
}

func TestPlayDetectsChecksumMismatch(t *testing.T) {
	var buf bytes.Buffer
	cfg := game.DefaultConfig()
	h := testHeader()
	h.Roster = game.LocalVersus()
	w, err := NewWriter(&buf, h)
	require.NoError(t, err)
	require.NoError(t, w.WriteTick(0, []game.InputFrame{game.Confirmed(game.InputRight)}))
	require.NoError(t, w.Finish(1, 12345))

	rd, err := NewReader(&buf)
	require.NoError(t, err)
	_, err = Play(cfg, rd, nil)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}
