// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"errors"
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"

	"github.com/ik5/audbeacon/audio"
)

// sampleReader is the part of oggvorbis.Reader a source reads from. Read
// returns interleaved float32 samples.
type sampleReader interface {
	SampleRate() int
	Channels() int
	Read(p []float32) (int, error)
}

type source struct {
	dec      sampleReader
	rate     int
	channels int
	done     bool
}

func newSource(dec sampleReader) *source {
	return &source{
		dec:      dec,
		rate:     dec.SampleRate(),
		channels: dec.Channels(),
	}
}

func (s *source) SampleRate() int { return s.rate }
func (s *source) Channels() int   { return s.channels }
func (s *source) BufSize() int    { return 4096 - 4096%s.channels }
func (s *source) Close() error    { return nil }

func (s *source) ReadSamples(dst []float32) (int, error) {
	if s.done {
		return 0, io.EOF
	}

	dst = dst[:len(dst)-len(dst)%s.channels]

	total := 0
	for total < len(dst) {
		n, err := s.dec.Read(dst[total:])
		total += n

		if errors.Is(err, io.EOF) {
			s.done = true
			return total, io.EOF
		}
		if err != nil {
			return total, fmt.Errorf("decoding vorbis: %w", err)
		}
		if n == 0 {
			break
		}
	}

	return total, nil
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening ogg vorbis: %w", err)
	}

	return newSource(dec), nil
}
