// SPDX-License-Identifier: EPL-2.0

package beacon

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// LiveSource streams PCM from a live byte stream, typically synthesized
// speech arriving over a socket. The stream has no framing and the producer
// may never close it, so the end of an utterance is also deduced: once a
// pull has been filled completely, the first pull that comes up short is
// taken as the end.
type LiveSource struct {
	geometry

	r         io.Reader
	format    Format
	chunk     int
	timeout   time.Duration
	heuristic bool

	midStream atomic.Bool
	ended     atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// LiveOption configures a LiveSource.
type LiveOption func(*LiveSource)

// WithReadTimeout bounds how long a pull waits on a stream that supports
// SetReadDeadline (net.Conn, speech.Pipe). A timeout counts as a short read.
func WithReadTimeout(d time.Duration) LiveOption {
	return func(s *LiveSource) { s.timeout = d }
}

// WithEOFHeuristic turns the short-read end detection on or off. With it
// off, only an explicit end of stream from the producer ends the source.
func WithEOFHeuristic(enabled bool) LiveOption {
	return func(s *LiveSource) { s.heuristic = enabled }
}

type deadliner interface {
	SetReadDeadline(t time.Time) error
}

// NewLiveSource wraps r. chunkBytes is the pull size advertised to the audio
// system and is rounded down to whole frames.
func NewLiveSource(r io.Reader, f Format, chunkBytes int, opts ...LiveOption) (*LiveSource, error) {
	if r == nil {
		return nil, ErrNilReader
	}
	if err := f.validate(); err != nil {
		return nil, err
	}

	frame := f.FrameBytes()
	chunkBytes -= chunkBytes % frame
	if chunkBytes < frame {
		chunkBytes = frame
	}

	s := &LiveSource{
		r:         r,
		format:    f,
		chunk:     chunkBytes,
		heuristic: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Pull reads up to len(dst) bytes and zero-fills the rest. It returns
// ErrEndOfStream when the reader reports io.EOF, or when a short pull follows
// speech that was confirmed flowing. Either way dst holds whatever the pull
// read, zero-padded.
func (s *LiveSource) Pull(dst []byte) error {
	if s.ended.Load() {
		return ErrEndOfStream
	}
	if len(dst) == 0 {
		return nil
	}

	if d, ok := s.r.(deadliner); ok && s.timeout > 0 {
		_ = d.SetReadDeadline(time.Now().Add(s.timeout))
	}

	total := 0
	sawEOF := false
	for total < len(dst) {
		n, err := s.r.Read(dst[total:])
		total += n

		if errors.Is(err, io.EOF) || (err == nil && n == 0) {
			sawEOF = true
			break
		}
		if err != nil {
			// read errors are indistinguishable from a paused producer
			break
		}
	}

	clear(dst[total:])

	// the producer's end marker is final, whatever this pull read
	if sawEOF {
		s.ended.Store(true)
		return ErrEndOfStream
	}

	full := total == len(dst)

	if !s.midStream.Load() {
		if full {
			s.midStream.Store(true)
		}
		return nil
	}

	if !full && s.heuristic {
		s.ended.Store(true)
		return ErrEndOfStream
	}

	return nil
}

// MidStream reports whether speech has been confirmed flowing.
func (s *LiveSource) MidStream() bool { return s.midStream.Load() }

// Ended reports whether the source has signalled end of stream.
func (s *LiveSource) Ended() bool { return s.ended.Load() }

func (s *LiveSource) Params() StreamParams {
	return StreamParams{
		SampleRate: s.format.SampleRate,
		Channels:   s.format.Channels,
		ChunkBytes: s.chunk,
	}
}

// Close closes the underlying stream if it is an io.Closer.
func (s *LiveSource) Close() error {
	s.closeOnce.Do(func() {
		if c, ok := s.r.(io.Closer); ok {
			s.closeErr = c.Close()
		}
	})

	return s.closeErr
}

func (*LiveSource) sealed() {}
