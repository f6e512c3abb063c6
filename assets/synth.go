// SPDX-License-Identifier: EPL-2.0

package assets

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/ik5/audbeacon/audio"
	"github.com/ik5/audbeacon/beacon"
	"github.com/ik5/audbeacon/formats/wav"
)

// Pattern describes a synthetic beacon loop: Beats equal beats, each
// starting with Pulses short tone bursts.
type Pattern struct {
	Frequency float64       // Hz
	Beats     int           // beats per loop
	Beat      time.Duration // length of one beat
	Pulses    int           // bursts at the start of each beat
	Pulse     time.Duration // length of one burst, followed by an equal gap
	Gain      float64       // peak amplitude in [0, 1]
}

// DefaultPatterns stand in for the tactile beacon recordings. The rear layer
// is lower and doubled so front and back are easy to tell apart.
var DefaultPatterns = map[string]Pattern{
	"tactile_on_axis.wav": {Frequency: 1320, Beats: 6, Beat: 250 * time.Millisecond, Pulses: 1, Pulse: 30 * time.Millisecond, Gain: 0.8},
	"tactile_behind.wav":  {Frequency: 660, Beats: 6, Beat: 250 * time.Millisecond, Pulses: 2, Pulse: 25 * time.Millisecond, Gain: 0.7},
}

// Render synthesizes one loop as float32 samples, interleaved over channels.
func (p Pattern) Render(rate, channels int) []float32 {
	if p.Beats <= 0 || rate <= 0 || channels <= 0 {
		return nil
	}

	// beats start on the nearest frame, so the loop is exactly
	// Beats*Beat long at any rate
	frames := int(math.Round(float64(p.Beats) * p.Beat.Seconds() * float64(rate)))
	pulse := max(int(p.Pulse.Seconds()*float64(rate)), 1)
	ramp := max(pulse/8, 1)

	out := make([]float32, frames*channels)
	for b := range p.Beats {
		first, end := b*frames/p.Beats, (b+1)*frames/p.Beats
		for k := range p.Pulses {
			start := first + 2*k*pulse
			for i := range pulse {
				frame := start + i
				if frame >= end {
					break
				}

				env := 1.0
				if i < ramp {
					env = float64(i) / float64(ramp)
				} else if i > pulse-ramp {
					env = float64(pulse-i) / float64(ramp)
				}

				v := float32(p.Gain * env * math.Sin(2*math.Pi*p.Frequency*float64(i)/float64(rate)))
				for c := range channels {
					out[frame*channels+c] = v
				}
			}
		}
	}

	return out
}

// SynthLoader renders patterns instead of reading files. It implements
// beacon.Loader.
type SynthLoader struct {
	patterns map[string]Pattern
}

// NewSynthLoader serves patterns, or DefaultPatterns when patterns is nil.
func NewSynthLoader(patterns map[string]Pattern) *SynthLoader {
	if patterns == nil {
		patterns = DefaultPatterns
	}
	return &SynthLoader{patterns: patterns}
}

func (s *SynthLoader) Load(asset string, f beacon.Format) ([]byte, error) {
	p, ok := s.patterns[asset]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAsset, asset)
	}

	pcm := audio.AppendPCM16(nil, p.Render(f.SampleRate, f.Channels))
	if len(pcm) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptyAsset, asset)
	}

	return pcm, nil
}

// WriteDefaults writes every default pattern as a 16-bit mono WAV file into
// dir, leaving files that already exist alone. It returns the files written.
func WriteDefaults(dir string, rate int) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating asset dir: %w", err)
	}

	var written []string
	for name, p := range DefaultPatterns {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		}

		if err := writePattern(path, p, rate); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	return written, nil
}

func writePattern(path string, p Pattern, rate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	pcm := audio.AppendPCM16(nil, p.Render(rate, 1))
	if err := wav.WriteWAV16(f, rate, 1, pcm); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return f.Close()
}
