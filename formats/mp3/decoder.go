// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"errors"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/ik5/audbeacon/audio"
)

// go-mp3 always emits 16-bit little-endian stereo.
const (
	channels   = 2
	frameBytes = 2 * channels
)

// pcmReader is the part of gomp3.Decoder a source reads from.
type pcmReader interface {
	io.Reader
	SampleRate() int
}

type source struct {
	dec  pcmReader
	rate int
	buf  []byte
	done bool
}

func newSource(dec pcmReader) *source {
	return &source{
		dec:  dec,
		rate: dec.SampleRate(),
		buf:  make([]byte, 8192),
	}
}

func (s *source) SampleRate() int { return s.rate }
func (s *source) Channels() int   { return channels }
func (s *source) BufSize() int    { return cap(s.buf) / 2 }
func (s *source) Close() error    { return nil }

func (s *source) ReadSamples(dst []float32) (int, error) {
	if s.done {
		return 0, io.EOF
	}

	frames := len(dst) / channels
	if frames == 0 {
		return 0, nil
	}

	need := frames * frameBytes
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	s.buf = s.buf[:need]

	n, err := io.ReadFull(s.dec, s.buf)
	n -= n % frameBytes
	samples := audio.DecodePCM16(dst, s.buf[:n])

	switch {
	case err == nil:
		return samples, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		s.done = true
		return samples, io.EOF
	default:
		return samples, fmt.Errorf("decoding mp3: %w", err)
	}
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("opening mp3: %w", err)
	}

	return newSource(dec), nil
}
