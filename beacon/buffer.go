// SPDX-License-Identifier: EPL-2.0

package beacon

// Format describes PCM16 little-endian audio.
type Format struct {
	SampleRate int
	Channels   int
}

// FrameBytes is the size of one interleaved frame in bytes.
func (f Format) FrameBytes() int { return 2 * f.Channels }

func (f Format) validate() error {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return ErrInvalidFormat
	}
	return nil
}

// SampleBuffer is an immutable block of decoded PCM tagged with the widest
// off-axis angle at which it is still selected.
type SampleBuffer struct {
	data  []byte
	angle float64
}

// NewSampleBuffer copies data into a new buffer. activationAngle is in
// degrees and must be within [0, 180].
func NewSampleBuffer(data []byte, activationAngle float64) (*SampleBuffer, error) {
	if len(data) == 0 {
		return nil, ErrEmptyBuffer
	}
	if activationAngle < 0 || activationAngle > 180 {
		return nil, ErrInvalidAngle
	}

	return &SampleBuffer{
		data:  append([]byte(nil), data...),
		angle: activationAngle,
	}, nil
}

func (b *SampleBuffer) Size() int                { return len(b.data) }
func (b *SampleBuffer) ActivationAngle() float64 { return b.angle }

// CopyAt fills all of dst starting at byte position pos modulo the buffer
// size, wrapping to the start as often as needed. It returns len(dst).
func (b *SampleBuffer) CopyAt(dst []byte, pos uint64) int {
	off := int(pos % uint64(len(b.data)))

	n := 0
	for n < len(dst) {
		n += copy(dst[n:], b.data[off:])
		off = 0
	}

	return n
}
