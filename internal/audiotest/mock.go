// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"io"
	"math"
)

// MockSource generates audio for decoder and asset pipeline tests.
// It satisfies audio.Source without importing it.
type MockSource struct {
	sampleRate int
	channels   int
	frames     int // frames to generate per channel
	pos        int
	closed     bool
	waveform   func(frame, channel int) float32
}

// NewMockSource returns a source of frames frames whose samples come from
// waveform.
func NewMockSource(sampleRate, channels, frames int, waveform func(frame, channel int) float32) *MockSource {
	return &MockSource{
		sampleRate: sampleRate,
		channels:   channels,
		frames:     frames,
		waveform:   waveform,
	}
}

func NewSilentSource(sampleRate, channels, frames int) *MockSource {
	return NewConstantSource(sampleRate, channels, frames, 0)
}

func NewConstantSource(sampleRate, channels, frames int, value float32) *MockSource {
	return NewMockSource(sampleRate, channels, frames, func(int, int) float32 { return value })
}

func NewSineSource(sampleRate, channels, frames int, frequency float64) *MockSource {
	return NewMockSource(sampleRate, channels, frames, func(frame, _ int) float32 {
		t := float64(frame) / float64(sampleRate)
		return float32(math.Sin(2 * math.Pi * frequency * t))
	})
}

// NewClickSource emits a short full-scale click every period frames, the
// shape of a beacon tick.
func NewClickSource(sampleRate, channels, frames, period, width int) *MockSource {
	return NewMockSource(sampleRate, channels, frames, func(frame, _ int) float32 {
		if frame%period < width {
			return 0.9
		}
		return 0
	})
}

func (m *MockSource) SampleRate() int { return m.sampleRate }
func (m *MockSource) Channels() int   { return m.channels }
func (m *MockSource) BufSize() int    { return 4096 }

func (m *MockSource) Close() error {
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockSource) Closed() bool { return m.closed }

// Rewind starts the waveform again from the first frame.
func (m *MockSource) Rewind() { m.pos = 0 }

func (m *MockSource) ReadSamples(dst []float32) (int, error) {
	if m.pos >= m.frames {
		return 0, io.EOF
	}

	frames := min(len(dst)/m.channels, m.frames-m.pos)
	for f := range frames {
		for ch := range m.channels {
			dst[f*m.channels+ch] = m.waveform(m.pos+f, ch)
		}
	}
	m.pos += frames

	if m.pos >= m.frames {
		return frames * m.channels, io.EOF
	}

	return frames * m.channels, nil
}
