// SPDX-License-Identifier: EPL-2.0

package assets

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/ik5/audbeacon/audio"
	"github.com/ik5/audbeacon/beacon"
	"github.com/ik5/audbeacon/formats/wav"
)

var beaconFormat = beacon.Format{SampleRate: 44100, Channels: 1}

// wavBytes encodes samples as a WAV file and returns its contents.
func wavBytes(t *testing.T, rate, channels int, samples []float32) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "x.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := wav.WriteWAV16(f, rate, channels, audio.AppendPCM16(nil, samples)); err != nil {
		t.Fatalf("WriteWAV16() error = %v", err)
	}
	_ = f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	return data
}

func TestLoader_ConvertsToBeaconFormat(t *testing.T) {
	t.Parallel()

	// 2205 stereo frames at 22.05 kHz, 100 ms
	samples := make([]float32, 2*2205)
	for i := range samples {
		samples[i] = 0.25
	}

	fsys := fstest.MapFS{
		"ping.wav": {Data: wavBytes(t, 22050, 2, samples)},
	}

	pcm, err := NewLoader(fsys).Load("ping.wav", beaconFormat)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if want := 4410 * 2; len(pcm) != want {
		t.Errorf("len = %d, want %d", len(pcm), want)
	}
}

func TestLoader_Errors(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"ping.flac":  {Data: []byte("fLaC")},
		"broken.wav": {Data: []byte("RIFF garbage")},
		"empty.wav":  {Data: nil},
	}
	l := NewLoader(fsys)

	if _, err := l.Load("missing.wav", beaconFormat); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing: error = %v, want fs.ErrNotExist", err)
	}
	if _, err := l.Load("ping.flac", beaconFormat); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("flac: error = %v, want ErrUnknownFormat", err)
	}
	if _, err := l.Load("broken.wav", beaconFormat); err == nil {
		t.Error("broken: expected error")
	}
	if _, err := l.Load("empty.wav", beaconFormat); err == nil {
		t.Error("empty: expected error")
	}
}

func TestLoader_EmptyData(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{"silence.wav": {Data: wavBytes(t, 8000, 1, nil)}}

	// a header without samples never yields a buffer
	if pcm, err := NewLoader(fsys).Load("silence.wav", beaconFormat); err == nil {
		t.Errorf("Load() = %d bytes, want error", len(pcm))
	}
}

func TestLoader_Fallback(t *testing.T) {
	t.Parallel()

	l := NewLoader(fstest.MapFS{}, WithFallback(NewSynthLoader(nil)))

	pcm, err := l.Load("tactile_behind.wav", beaconFormat)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(pcm) == 0 {
		t.Error("fallback returned no audio")
	}
}

func TestSynthLoader(t *testing.T) {
	t.Parallel()

	s := NewSynthLoader(nil)

	pcm, err := s.Load("tactile_on_axis.wav", beaconFormat)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	// six 250 ms beats of mono PCM16
	if want := 6 * 11025 * 2; len(pcm) != want {
		t.Errorf("len = %d, want %d", len(pcm), want)
	}

	if _, err := s.Load("foghorn.wav", beaconFormat); !errors.Is(err, ErrUnknownAsset) {
		t.Errorf("unknown: error = %v, want ErrUnknownAsset", err)
	}
}

func TestPattern_Render(t *testing.T) {
	t.Parallel()

	p := Pattern{Frequency: 1000, Beats: 2, Beat: 100 * time.Millisecond, Pulses: 2, Pulse: 10 * time.Millisecond, Gain: 1}
	out := p.Render(8000, 2)

	if len(out) != 2*800*2 {
		t.Fatalf("len = %d, want %d", len(out), 2*800*2)
	}

	loud := func(from, to int) bool {
		for f := from; f < to; f++ {
			if out[2*f] != 0 {
				return true
			}
		}
		return false
	}

	// bursts at [0,80) and [160,240) of each beat, silence between and after
	for _, beat := range []int{0, 800} {
		if !loud(beat, beat+80) || !loud(beat+160, beat+240) {
			t.Errorf("beat at %d: missing burst", beat)
		}
		if loud(beat+80, beat+160) || loud(beat+240, beat+800) {
			t.Errorf("beat at %d: sound outside bursts", beat)
		}
	}

	for f := 0; f < len(out); f += 2 {
		if out[f] != out[f+1] {
			t.Fatalf("frame %d: channels differ", f/2)
		}
	}
}

func TestPattern_RenderFractionalBeat(t *testing.T) {
	t.Parallel()

	// 250 ms is 5512.5 frames at 22.05 kHz
	p := DefaultPatterns["tactile_on_axis.wav"]
	out := p.Render(22050, 1)

	if len(out) != 33075 {
		t.Fatalf("len = %d, want 33075 (6 x 250 ms)", len(out))
	}

	loud := func(from, to int) bool {
		for _, v := range out[from:to] {
			if v != 0 {
				return true
			}
		}
		return false
	}

	// the third beat starts exactly at 0.5 s
	if loud(10925, 11025) {
		t.Error("sound before the third beat")
	}
	if !loud(11025, 11025+661) {
		t.Error("missing burst at the third beat")
	}
	if got := (Pattern{Beats: 0, Beat: time.Second}).Render(8000, 1); got != nil {
		t.Errorf("Render() with no beats = %d samples, want none", len(got))
	}
}

func TestWriteDefaults(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "assets")

	written, err := WriteDefaults(dir, 22050)
	if err != nil {
		t.Fatalf("WriteDefaults() error = %v", err)
	}
	if len(written) != len(DefaultPatterns) {
		t.Errorf("wrote %d files, want %d", len(written), len(DefaultPatterns))
	}

	again, err := WriteDefaults(dir, 22050)
	if err != nil || len(again) != 0 {
		t.Errorf("second WriteDefaults() = %v, %v, want nothing written", again, err)
	}

	src, err := beacon.LoadDirectionalSource(NewLoader(os.DirFS(dir)), beaconFormat, []beacon.Layer{
		{Asset: "tactile_on_axis.wav", Angle: 90},
		{Asset: "tactile_behind.wav", Angle: 180},
	})
	if err != nil {
		t.Fatalf("LoadDirectionalSource() error = %v", err)
	}

	// 1.5 s at 22.05 kHz resampled to 44.1 kHz mono
	if got := src.Params().TotalBytes; got != 66150*2 {
		t.Errorf("TotalBytes = %d, want %d", got, 66150*2)
	}
}
