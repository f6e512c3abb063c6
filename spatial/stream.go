// SPDX-License-Identifier: EPL-2.0

package spatial

import (
	"errors"

	"github.com/ik5/audbeacon/audio"
	"github.com/ik5/audbeacon/beacon"
)

// pullStreamer turns a beacon pull callback into a beep.Streamer. Each chunk
// is requested in full, decoded and handed out frame by frame; mono chunks
// feed both sides.
type pullStreamer struct {
	pull     beacon.PullFunc
	channels int

	chunk   []byte
	samples []float32
	pos     int // next sample in samples
	n       int // valid samples in samples

	ended bool
	err   error
}

func newPullStreamer(pull beacon.PullFunc, channels, chunkBytes int) *pullStreamer {
	return &pullStreamer{
		pull:     pull,
		channels: channels,
		chunk:    make([]byte, chunkBytes),
		samples:  make([]float32, chunkBytes/2),
	}
}

func (p *pullStreamer) Stream(out [][2]float64) (int, bool) {
	i := 0
	for i < len(out) {
		if p.pos >= p.n {
			if p.ended {
				break
			}
			p.refill()
			continue
		}

		if p.channels == 1 {
			v := float64(p.samples[p.pos])
			out[i] = [2]float64{v, v}
			p.pos++
		} else {
			out[i] = [2]float64{float64(p.samples[p.pos]), float64(p.samples[p.pos+1])}
			p.pos += 2
		}
		i++
	}

	if i == 0 && p.ended {
		return 0, false
	}
	return i, true
}

func (p *pullStreamer) Err() error { return p.err }

// refill pulls the next chunk. The chunk is cleared first so a short or
// failed pull leaves silence behind. The chunk that comes with end of stream
// is still played.
func (p *pullStreamer) refill() {
	clear(p.chunk)
	err := p.pull(p.chunk)

	p.pos = 0
	p.n = audio.DecodePCM16(p.samples, p.chunk)

	if err == nil {
		return
	}
	p.ended = true
	if !errors.Is(err, beacon.ErrEndOfStream) {
		p.err = err
		p.n = 0
	}
}
