// SPDX-License-Identifier: EPL-2.0

// Package intpcm adapts the integer PCM decoders of github.com/go-audio to
// audio.Source.
package intpcm

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
)

var ErrUnsupportedBitDepth = errors.New("unsupported bit depth")

// Reader is the part of the go-audio wav and aiff decoders a Source needs.
type Reader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// Source normalizes the integer samples of a go-audio decoder to [-1, 1].
type Source struct {
	dec        Reader
	sampleRate int
	channels   int
	scale      float32
	buf        *goaudio.IntBuffer
	done       bool
}

// New wraps dec. Only 16, 24 and 32 bit signed samples are accepted.
func New(dec Reader, format *goaudio.Format, bitDepth int) (*Source, error) {
	if format == nil || format.NumChannels <= 0 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: missing format", ErrUnsupportedBitDepth)
	}

	var scale float32
	switch bitDepth {
	case 16, 24, 32:
		scale = 1 / float32(int64(1)<<(bitDepth-1))
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}

	return &Source{
		dec:        dec,
		sampleRate: format.SampleRate,
		channels:   format.NumChannels,
		scale:      scale,
		buf: &goaudio.IntBuffer{
			Format:         format,
			Data:           make([]int, 4096-4096%format.NumChannels),
			SourceBitDepth: bitDepth,
		},
	}, nil
}

func (s *Source) SampleRate() int { return s.sampleRate }
func (s *Source) Channels() int   { return s.channels }
func (s *Source) BufSize() int    { return cap(s.buf.Data) }
func (s *Source) Close() error    { return nil }

func (s *Source) ReadSamples(dst []float32) (int, error) {
	if s.done {
		return 0, io.EOF
	}

	want := len(dst) - len(dst)%s.channels
	if want == 0 {
		return 0, nil
	}
	if cap(s.buf.Data) < want {
		s.buf.Data = make([]int, want)
	}
	s.buf.Data = s.buf.Data[:want]

	n, err := s.dec.PCMBuffer(s.buf)
	for i, v := range s.buf.Data[:n] {
		dst[i] = float32(v) * s.scale
	}

	switch {
	case err == nil && n == want:
		return n, nil
	case err == nil, errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		s.done = true
		return n, io.EOF
	default:
		return n, fmt.Errorf("reading pcm: %w", err)
	}
}

// ReadSeeker returns r itself when it can seek, otherwise an in-memory copy
// of everything it yields.
func ReadSeeker(r io.Reader) (io.ReadSeeker, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		return rs, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("buffering input: %w", err)
	}

	return bytes.NewReader(data), nil
}
