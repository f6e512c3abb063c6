// SPDX-License-Identifier: EPL-2.0

package beacon

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"sync/atomic"

	"github.com/ik5/audbeacon/geo"
)

// beatCount is the number of beats in one loop of a beacon asset. The audio
// system is asked for a quarter beat per pull.
const beatCount = 6

// Layer names an asset and the activation angle of the buffer decoded from it.
type Layer struct {
	Asset string  `mapstructure:"asset" json:"asset" yaml:"asset"`
	Angle float64 `mapstructure:"angle" json:"angle" yaml:"angle"`
}

// Loader decodes an asset into PCM16 little-endian bytes in the given format.
type Loader interface {
	Load(asset string, f Format) ([]byte, error)
}

// DirectionalSource loops over a set of pre-decoded buffers, choosing which
// one to play from the most recently published off-axis angle.
type DirectionalSource struct {
	geometry

	format  Format
	buffers []*SampleBuffer // ascending by activation angle
	cursor  atomic.Uint64
}

// LoadDirectionalSource decodes every layer once, up front, and builds a
// source from the resulting buffers.
func LoadDirectionalSource(loader Loader, f Format, layers []Layer) (*DirectionalSource, error) {
	if len(layers) == 0 {
		return nil, ErrNoBuffers
	}

	buffers := make([]*SampleBuffer, 0, len(layers))
	for _, l := range layers {
		pcm, err := loader.Load(l.Asset, f)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", l.Asset, err)
		}

		b, err := NewSampleBuffer(pcm, l.Angle)
		if err != nil {
			return nil, fmt.Errorf("buffer %q: %w", l.Asset, err)
		}
		buffers = append(buffers, b)
	}

	return NewDirectionalSource(f, buffers...)
}

// NewDirectionalSource builds a source from already decoded buffers. The
// buffers are ordered by activation angle; the list is fixed from then on.
func NewDirectionalSource(f Format, buffers ...*SampleBuffer) (*DirectionalSource, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	if len(buffers) == 0 {
		return nil, ErrNoBuffers
	}

	sorted := slices.Clone(buffers)
	slices.SortStableFunc(sorted, func(a, b *SampleBuffer) int {
		return cmp.Compare(a.angle, b.angle)
	})

	return &DirectionalSource{
		format:  f,
		buffers: sorted,
	}, nil
}

// Select returns the index of the buffer that plays at the given off-axis
// angle: the first whose activation angle covers |angle|, or the last one.
func (s *DirectionalSource) Select(angle float64) int {
	a := math.Abs(geo.NormalizeAngle(angle))
	for i, b := range s.buffers {
		if b.angle >= a {
			return i
		}
	}

	return len(s.buffers) - 1
}

// Pull fills dst from the selected buffer at the shared cursor. Switching
// buffers keeps the cursor, so buffers of different lengths drift against
// each other. It never returns ErrEndOfStream.
func (s *DirectionalSource) Pull(dst []byte) error {
	buf := s.buffers[s.Select(s.OffAxisAngle())]
	n := buf.CopyAt(dst, s.cursor.Load())
	s.cursor.Add(uint64(n))

	return nil
}

// Cursor is the number of bytes pulled so far.
func (s *DirectionalSource) Cursor() uint64 { return s.cursor.Load() }

// Buffers returns the buffers in selection order.
func (s *DirectionalSource) Buffers() []*SampleBuffer { return slices.Clone(s.buffers) }

// Params advertises a looping stream as long as the narrowest buffer, pulled
// a quarter beat at a time.
func (s *DirectionalSource) Params() StreamParams {
	total := s.buffers[0].Size()
	frame := s.format.FrameBytes()

	chunk := total / (4 * beatCount)
	chunk -= chunk % frame
	if chunk < frame {
		chunk = frame
	}

	return StreamParams{
		SampleRate: s.format.SampleRate,
		Channels:   s.format.Channels,
		ChunkBytes: chunk,
		TotalBytes: total,
		Loop:       true,
	}
}

func (s *DirectionalSource) Close() error { return nil }

func (*DirectionalSource) sealed() {}
