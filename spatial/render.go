// SPDX-License-Identifier: EPL-2.0

package spatial

import (
	"fmt"
	"io"

	"github.com/gopxl/beep/v2"
)

const mixFrames = 512

// Reader encodes a beep.Streamer as interleaved PCM bytes in format. It
// never returns io.EOF while the streamer keeps streaming, so it can back an
// audio device player.
type Reader struct {
	src    beep.Streamer
	format beep.Format
	buf    [][2]float64
}

func NewReader(src beep.Streamer, format beep.Format) *Reader {
	return &Reader{
		src:    src,
		format: format,
		buf:    make([][2]float64, mixFrames),
	}
}

// Read fills p with whole frames. p shorter than one frame is an error.
func (r *Reader) Read(p []byte) (int, error) {
	width := r.format.Width()
	frames := len(p) / width
	if frames == 0 {
		return 0, io.ErrShortBuffer
	}

	n := 0
	for frames > 0 {
		chunk := r.buf[:min(frames, len(r.buf))]
		got, ok := r.src.Stream(chunk)
		for _, sample := range chunk[:got] {
			n += r.format.EncodeSigned(p[n:], sample)
		}
		frames -= got

		if !ok || got == 0 {
			if n > 0 {
				return n, nil
			}
			if err := r.src.Err(); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}
	}

	return n, nil
}

// Render mixes frames frames of s and writes them to w as 16-bit stereo PCM
// at the system's rate. The beacons' pull callbacks run on the calling
// goroutine; rendering while an Output plays the same system splits the mix
// between the two.
func (s *System) Render(w io.Writer, frames int) error {
	width := s.format.Width()
	r := NewReader(s, s.format)
	buf := make([]byte, mixFrames*width)

	for frames > 0 {
		n := min(frames, mixFrames) * width
		if _, err := io.ReadFull(r, buf[:n]); err != nil {
			return fmt.Errorf("mixing: %w", err)
		}
		if _, err := w.Write(buf[:n]); err != nil {
			return fmt.Errorf("writing pcm: %w", err)
		}
		frames -= n / width
	}

	return nil
}
