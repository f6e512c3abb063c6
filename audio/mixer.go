// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// ChannelMixer changes the channel count of src. Downmixing averages the
// input channels that fold onto each output channel; upmixing repeats them.
type ChannelMixer struct {
	src Source
	out int
	tmp []float32
}

func NewChannelMixer(src Source, channels int) *ChannelMixer {
	return &ChannelMixer{
		src: src,
		out: channels,
	}
}

// NewMonoMixer averages every frame of src into one channel.
func NewMonoMixer(src Source) *ChannelMixer { return NewChannelMixer(src, 1) }

func (m *ChannelMixer) SampleRate() int { return m.src.SampleRate() }
func (m *ChannelMixer) Channels() int   { return m.out }
func (m *ChannelMixer) BufSize() int    { return m.src.BufSize() }

func (m *ChannelMixer) Close() error {
	if err := m.src.Close(); err != nil {
		return fmt.Errorf("closing mixer source: %w", err)
	}
	return nil
}

func (m *ChannelMixer) ReadSamples(dst []float32) (int, error) {
	if len(dst)%m.out != 0 {
		return 0, ErrInvalidDstSize
	}

	in := m.src.Channels()
	if in == m.out {
		return m.src.ReadSamples(dst)
	}

	frames := len(dst) / m.out
	if frames == 0 {
		return 0, nil
	}

	need := frames * in
	if cap(m.tmp) < need {
		m.tmp = make([]float32, need)
	}
	tmp := m.tmp[:need]

	n, err := m.src.ReadSamples(tmp)
	got := n / in

	switch {
	case m.out == 1:
		scale := 1 / float32(in)
		for f := range got {
			var sum float32
			for _, s := range tmp[f*in : (f+1)*in] {
				sum += s
			}
			dst[f] = sum * scale
		}
	case in < m.out:
		for f := range got {
			for o := range m.out {
				dst[f*m.out+o] = tmp[f*in+o%in]
			}
		}
	default:
		for f := range got {
			frame := tmp[f*in : (f+1)*in]
			for o := range m.out {
				var sum float32
				var count int
				for c := o; c < in; c += m.out {
					sum += frame[c]
					count++
				}
				dst[f*m.out+o] = sum / float32(count)
			}
		}
	}

	return got * m.out, err
}
