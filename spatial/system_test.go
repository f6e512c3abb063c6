// SPDX-License-Identifier: EPL-2.0

package spatial

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ik5/audbeacon/beacon"
)

const rate = 8000

func newSystem(t *testing.T) *System {
	t.Helper()

	s, err := NewSystem(rate)
	if err != nil {
		t.Fatalf("NewSystem() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	return s
}

// constPull fills every chunk with v and counts its invocations.
func constPull(v int16, calls *atomic.Int64) beacon.PullFunc {
	return func(dst []byte) error {
		calls.Add(1)
		for i := 0; i+1 < len(dst); i += 2 {
			binary.LittleEndian.PutUint16(dst[i:], uint16(v))
		}
		return nil
	}
}

func monoParams(chunk int) beacon.StreamParams {
	return beacon.StreamParams{
		SampleRate:  rate,
		Channels:    1,
		ChunkBytes:  chunk,
		Loop:        true,
		MinDistance: 10,
		MaxDistance: 5000,
	}
}

// play creates and starts a stream at (lat, lon).
func play(t *testing.T, s *System, params beacon.StreamParams, pull beacon.PullFunc, lat, lon float64) beacon.SoundHandle {
	t.Helper()

	h, err := s.CreateStream(params, pull)
	if err != nil {
		t.Fatalf("CreateStream() error = %v", err)
	}
	ch, err := s.Play(h)
	if err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if err := s.SetChannel3D(ch, beacon.Vector{X: lon, Z: lat}, beacon.Vector{}); err != nil {
		t.Fatalf("SetChannel3D() error = %v", err)
	}

	return h
}

// render mixes frames frames and returns them as left/right int16 pairs.
func render(t *testing.T, s *System, frames int) [][2]int16 {
	t.Helper()

	var buf bytes.Buffer
	if err := s.Render(&buf, frames); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if buf.Len() != frames*4 {
		t.Fatalf("Render() wrote %d bytes, want %d", buf.Len(), frames*4)
	}

	out := make([][2]int16, frames)
	if err := binary.Read(&buf, binary.LittleEndian, out); err != nil {
		t.Fatal(err)
	}

	return out
}

func near(got, want int16) bool {
	d := int(got) - int(want)
	return d >= -2 && d <= 2
}

func TestNewSystem_InvalidRate(t *testing.T) {
	t.Parallel()

	if _, err := NewSystem(0); !errors.Is(err, ErrInvalidSampleRate) {
		t.Errorf("NewSystem(0) error = %v, want ErrInvalidSampleRate", err)
	}
}

func TestCreateStream_InvalidParams(t *testing.T) {
	t.Parallel()

	s := newSystem(t)
	var calls atomic.Int64
	pull := constPull(0, &calls)

	tests := []struct {
		name   string
		params beacon.StreamParams
		pull   beacon.PullFunc
	}{
		{"nil pull", monoParams(8), nil},
		{"zero rate", beacon.StreamParams{Channels: 1, ChunkBytes: 8}, pull},
		{"three channels", beacon.StreamParams{SampleRate: rate, Channels: 3, ChunkBytes: 12}, pull},
		{"no chunk", beacon.StreamParams{SampleRate: rate, Channels: 1}, pull},
		{"partial frame", beacon.StreamParams{SampleRate: rate, Channels: 2, ChunkBytes: 6}, pull},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.CreateStream(tt.params, tt.pull); !errors.Is(err, ErrInvalidParams) {
				t.Errorf("CreateStream() error = %v, want ErrInvalidParams", err)
			}
		})
	}
}

func TestSystem_UnknownHandles(t *testing.T) {
	t.Parallel()

	s := newSystem(t)

	if _, err := s.Play(42); !errors.Is(err, ErrUnknownSound) {
		t.Errorf("Play() error = %v, want ErrUnknownSound", err)
	}
	if err := s.SetChannel3D(42, beacon.Vector{}, beacon.Vector{}); !errors.Is(err, ErrUnknownChannel) {
		t.Errorf("SetChannel3D() error = %v, want ErrUnknownChannel", err)
	}
	if err := s.Release(42); !errors.Is(err, ErrUnknownSound) {
		t.Errorf("Release() error = %v, want ErrUnknownSound", err)
	}
}

func TestSystem_PlayTwiceKeepsChannel(t *testing.T) {
	t.Parallel()

	s := newSystem(t)
	var calls atomic.Int64

	h, err := s.CreateStream(monoParams(16), constPull(0, &calls))
	if err != nil {
		t.Fatal(err)
	}
	first, _ := s.Play(h)
	second, _ := s.Play(h)

	if first == 0 || first != second {
		t.Errorf("Play() = %d then %d, want the same non-zero channel", first, second)
	}
	if s.Playing() != 1 {
		t.Errorf("Playing() = %d, want 1", s.Playing())
	}
}

func TestRender_Silence(t *testing.T) {
	t.Parallel()

	for i, f := range render(t, newSystem(t), 300) {
		if f != [2]int16{} {
			t.Fatalf("frame %d = %v, want silence", i, f)
		}
	}
}

func TestRender_CreatedButNotPlayedIsSilent(t *testing.T) {
	t.Parallel()

	s := newSystem(t)
	var calls atomic.Int64

	if _, err := s.CreateStream(monoParams(16), constPull(8000, &calls)); err != nil {
		t.Fatal(err)
	}
	render(t, s, 100)

	if calls.Load() != 0 {
		t.Errorf("pull called %d times before Play", calls.Load())
	}
}

func TestRender_MonoAtListenerIsCentred(t *testing.T) {
	t.Parallel()

	s := newSystem(t)
	var calls atomic.Int64
	play(t, s, monoParams(64), constPull(16384, &calls), 0, 0)

	out := render(t, s, 100)
	for i, f := range out {
		if !near(f[0], 16384) || !near(f[1], 16384) {
			t.Fatalf("frame %d = %v, want both sides near 16384", i, f)
		}
	}

	// 100 frames of 32 frames per chunk
	if got := calls.Load(); got != 4 {
		t.Errorf("pulls = %d, want 4", got)
	}
}

func TestRender_StereoKeepsSides(t *testing.T) {
	t.Parallel()

	s := newSystem(t)
	left, right := int16(8192), int16(-8192)
	pull := func(dst []byte) error {
		for i := 0; i+3 < len(dst); i += 4 {
			binary.LittleEndian.PutUint16(dst[i:], uint16(left))
			binary.LittleEndian.PutUint16(dst[i+2:], uint16(right))
		}
		return nil
	}
	params := monoParams(64)
	params.Channels = 2
	play(t, s, params, pull, 0, 0)

	for i, f := range render(t, s, 50) {
		if !near(f[0], 8192) || !near(f[1], -8192) {
			t.Fatalf("frame %d = %v, want [8192 -8192]", i, f)
		}
	}
}

func TestRender_PanAndRolloff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		heading   beacon.Vector // listener forward
		lat, lon  float64       // beacon position
		wantLeft  bool
		wantRight bool
	}{
		{"east facing north", beacon.Vector{Z: 1}, 0, 0.001, false, true},
		{"west facing north", beacon.Vector{Z: 1}, 0, -0.001, true, false},
		{"east facing south", beacon.Vector{Z: -1}, 0, 0.001, true, false},
		{"north facing east", beacon.Vector{X: 1}, 0.001, 0, true, false},
		{"ahead", beacon.Vector{Z: 1}, 0.001, 0, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newSystem(t)
			var calls atomic.Int64
			play(t, s, monoParams(64), constPull(16384, &calls), tt.lat, tt.lon)

			if err := s.SetListener3D(beacon.Vector{}, beacon.Vector{}, tt.heading, beacon.Vector{Y: 1}); err != nil {
				t.Fatal(err)
			}
			if err := s.Update(); err != nil {
				t.Fatal(err)
			}

			f := render(t, s, 32)[16]

			if (f[0] != 0) != tt.wantLeft || (f[1] != 0) != tt.wantRight {
				t.Errorf("frame = %v, want left %v right %v", f, tt.wantLeft, tt.wantRight)
			}
			// 16384 about 111 m away with a 10 m reference distance is
			// about 1472 in the louder ear, wherever the beacon lies
			loudest := max(abs16(f[0]), abs16(f[1]))
			if loudest < 1440 || loudest > 1500 {
				t.Errorf("frame = %v, want the louder side near 1472", f)
			}
		})
	}
}

func TestRender_PanKeepsLoudness(t *testing.T) {
	t.Parallel()

	level := func(lat, lon float64) int16 {
		s := newSystem(t)
		var calls atomic.Int64
		play(t, s, monoParams(64), constPull(16384, &calls), lat, lon)
		if err := s.Update(); err != nil {
			t.Fatal(err)
		}

		f := render(t, s, 32)[16]
		return max(abs16(f[0]), abs16(f[1]))
	}

	ahead := level(0.0005, 0)
	side := level(0, 0.0005)
	diagonal := level(0.00035355, 0.00035355)

	for name, got := range map[string]int16{"side": side, "diagonal": diagonal} {
		if d := int(got) - int(ahead); d < -10 || d > 10 {
			t.Errorf("%s level = %d, ahead level = %d, want equal", name, got, ahead)
		}
	}
}

func abs16(v int16) int16 {
	if v < 0 {
		return -v
	}
	return v
}

func TestRolloff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dist, min, max float64
		want           float64
	}{
		{0, 10, 5000, 1},
		{10, 10, 5000, 1},
		{20, 10, 5000, 0.5},
		{100, 10, 5000, 0.1},
		{5000, 10, 5000, 0.002},
		{50000, 10, 5000, 0.002},
		{50000, 0, 5000, 1},
		{50000, 10, 0, 0.0002},
	}

	for _, tt := range tests {
		if got := rolloff(tt.dist, tt.min, tt.max); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("rolloff(%v, %v, %v) = %v, want %v", tt.dist, tt.min, tt.max, got, tt.want)
		}
	}
}

func TestRender_Resamples(t *testing.T) {
	t.Parallel()

	s := newSystem(t)
	var calls atomic.Int64
	params := monoParams(64)
	params.SampleRate = rate / 2
	play(t, s, params, constPull(16384, &calls), 0, 0)

	out := render(t, s, 800)

	// 800 output frames need about 400 source frames, 32 per chunk
	if got := calls.Load(); got < 11 || got > 16 {
		t.Errorf("pulls = %d, want about 13", got)
	}
	if f := out[400]; !near(f[0], 16384) {
		t.Errorf("frame 400 = %v, want near 16384", f)
	}
}

func TestRender_EndOfStream(t *testing.T) {
	t.Parallel()

	s := newSystem(t)
	var calls atomic.Int64
	pull := func(dst []byte) error {
		n := calls.Add(1)
		for i := 0; i+1 < len(dst); i += 2 {
			binary.LittleEndian.PutUint16(dst[i:], uint16(int16(4096)))
		}
		if n == 2 {
			return beacon.ErrEndOfStream
		}
		return nil
	}
	play(t, s, monoParams(64), pull, 0, 0)

	out := render(t, s, 100)

	// both chunks play, the rest is silence
	if !near(out[63][0], 4096) {
		t.Errorf("frame 63 = %v, want the end-of-stream chunk", out[63])
	}
	if out[64] != ([2]int16{}) {
		t.Errorf("frame 64 = %v, want silence", out[64])
	}
	render(t, s, 100)
	if got := calls.Load(); got != 2 {
		t.Errorf("pulls = %d, want 2", got)
	}
}

func TestRender_PullErrorDropsChunk(t *testing.T) {
	t.Parallel()

	s := newSystem(t)
	pull := func(dst []byte) error {
		dst[0] = 0xff
		return errors.New("boom")
	}
	play(t, s, monoParams(64), pull, 0, 0)

	for i, f := range render(t, s, 40) {
		if f != ([2]int16{}) {
			t.Fatalf("frame %d = %v, want silence", i, f)
		}
	}
}

func TestRelease_NoPullAfterReturn(t *testing.T) {
	t.Parallel()

	s := newSystem(t)

	var released atomic.Bool
	var late atomic.Int64
	pull := func(dst []byte) error {
		if released.Load() {
			late.Add(1)
		}
		return nil
	}
	h := play(t, s, monoParams(16), pull, 0, 0)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				_ = s.Render(io.Discard, 64)
			}
		}
	}()

	render(t, s, 16)
	if err := s.Release(h); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	released.Store(true)

	render(t, s, 256)
	close(stop)
	wg.Wait()

	if n := late.Load(); n != 0 {
		t.Errorf("pull ran %d times after Release returned", n)
	}
	if s.Playing() != 0 {
		t.Errorf("Playing() = %d, want 0", s.Playing())
	}
}

func TestSystem_Close(t *testing.T) {
	t.Parallel()

	s := newSystem(t)
	var calls atomic.Int64
	h := play(t, s, monoParams(16), constPull(100, &calls), 0, 0)

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	before := calls.Load()
	for _, f := range render(t, s, 64) {
		if f != ([2]int16{}) {
			t.Fatalf("closed system mixed %v", f)
		}
	}
	if calls.Load() != before {
		t.Error("closed system pulled")
	}

	if _, err := s.CreateStream(monoParams(16), constPull(0, &calls)); !errors.Is(err, ErrClosed) {
		t.Errorf("CreateStream() error = %v, want ErrClosed", err)
	}
	if _, err := s.Play(h); !errors.Is(err, ErrClosed) {
		t.Errorf("Play() error = %v, want ErrClosed", err)
	}
	if err := s.Update(); !errors.Is(err, ErrClosed) {
		t.Errorf("Update() error = %v, want ErrClosed", err)
	}
}

func TestReader_ShortBuffer(t *testing.T) {
	t.Parallel()

	s := newSystem(t)
	r := NewReader(s, s.Format())

	if _, err := r.Read(make([]byte, 3)); !errors.Is(err, io.ErrShortBuffer) {
		t.Errorf("Read() error = %v, want io.ErrShortBuffer", err)
	}
	n, err := r.Read(make([]byte, 4*1000+2))
	if err != nil || n != 4000 {
		t.Errorf("Read() = %d, %v, want 4000, nil", n, err)
	}
}
