// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/ik5/audbeacon/utils"
)

// Resampler converts src to another sample rate with Catmull-Rom
// interpolation over a four frame window. The channel count is kept.
// When downsampling, input frames go through a one-pole low-pass at 90% of
// the target Nyquist frequency first.
type Resampler struct {
	src      Source
	rate     int
	channels int
	srcRate  int64
	dstRate  int64

	// window holds source frames t-1, t, t+1, t+2. Output frame k sits at
	// source position k*srcRate/dstRate, kept exact in integers.
	window [4][]float32
	real   [4]bool
	t      int64
	k      int64
	primed bool

	in      []float32
	inPos   int
	inLen   int
	srcDone bool

	lowpass bool
	alpha   float32
	state   []float32
	warm    bool
}

func NewResampler(src Source, dstRate int) *Resampler {
	channels := src.Channels()

	size := max(src.BufSize(), 1024)
	size -= size % channels

	r := &Resampler{
		src:      src,
		rate:     dstRate,
		channels: channels,
		srcRate:  int64(src.SampleRate()),
		dstRate:  int64(dstRate),
		in:       make([]float32, size),
		state:    make([]float32, channels),
	}
	for i := range r.window {
		r.window[i] = make([]float32, channels)
	}

	if src.SampleRate() > dstRate {
		cutoff := 0.45 * float64(dstRate)
		r.lowpass = true
		r.alpha = float32(1 - math.Exp(-2*math.Pi*cutoff/float64(src.SampleRate())))
	}

	return r
}

func (r *Resampler) SampleRate() int { return r.rate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

func (r *Resampler) Close() error {
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("closing resampler source: %w", err)
	}
	return nil
}

// next copies the next source frame into frame. It reports false once the
// source is exhausted.
func (r *Resampler) next(frame []float32) (bool, error) {
	for r.inPos >= r.inLen {
		if r.srcDone {
			return false, nil
		}

		n, err := r.src.ReadSamples(r.in)
		r.inPos, r.inLen = 0, n-n%r.channels

		if errors.Is(err, io.EOF) {
			r.srcDone = true
		} else if err != nil {
			return false, fmt.Errorf("reading source: %w", err)
		}
	}

	copy(frame, r.in[r.inPos:r.inPos+r.channels])
	r.inPos += r.channels

	if r.lowpass {
		if !r.warm {
			copy(r.state, frame)
			r.warm = true
		}
		for c := range frame {
			r.state[c] += r.alpha * (frame[c] - r.state[c])
			frame[c] = r.state[c]
		}
	}

	return true, nil
}

func (r *Resampler) prime() error {
	r.primed = true

	ok, err := r.next(r.window[1])
	if err != nil || !ok {
		return err
	}
	copy(r.window[0], r.window[1])
	r.real[0], r.real[1] = true, true

	for i := 2; i < 4; i++ {
		ok, err := r.next(r.window[i])
		if err != nil {
			return err
		}
		if !ok {
			copy(r.window[i], r.window[i-1])
		}
		r.real[i] = ok
	}

	return nil
}

func (r *Resampler) advance() error {
	oldest := r.window[0]
	r.window[0], r.window[1], r.window[2], r.window[3] = r.window[1], r.window[2], r.window[3], oldest
	r.real[0], r.real[1], r.real[2] = r.real[1], r.real[2], r.real[3]

	ok, err := r.next(r.window[3])
	if err != nil {
		return err
	}
	if !ok {
		copy(r.window[3], r.window[2])
	}
	r.real[3] = ok

	return nil
}

// ReadSamples fills dst with frames at the target rate.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}
	if r.srcRate == r.dstRate {
		return r.src.ReadSamples(dst)
	}

	if !r.primed {
		if err := r.prime(); err != nil {
			return 0, err
		}
	}

	frames := len(dst) / r.channels
	written := 0

	for written < frames {
		pos := r.k * r.srcRate
		for target := pos / r.dstRate; r.t < target; r.t++ {
			if err := r.advance(); err != nil {
				return written * r.channels, err
			}
		}

		if !r.real[1] {
			return written * r.channels, io.EOF
		}

		x := float32(pos%r.dstRate) / float32(r.dstRate)
		out := dst[written*r.channels : (written+1)*r.channels]
		for c := range out {
			out[c] = utils.CubicInterpolate(r.window[0][c], r.window[1][c], r.window[2][c], r.window[3][c], x)
		}
		written++
		r.k++
	}

	return written * r.channels, nil
}
