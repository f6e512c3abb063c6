// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"

	"github.com/go-audio/wav"

	"github.com/ik5/audbeacon/audio"
	"github.com/ik5/audbeacon/formats/internal/intpcm"
)

const formatPCM = 1

type Decoder struct{}

// Decode reads the RIFF header and returns a Source over the data chunk.
// Inputs that cannot seek are buffered in memory first.
func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	rs, err := intpcm.ReadSeeker(r)
	if err != nil {
		return nil, err
	}

	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotWavFile
	}
	if dec.WavAudioFormat != formatPCM {
		return nil, fmt.Errorf("%w: format tag %d", ErrNotPCM, dec.WavAudioFormat)
	}

	return intpcm.New(dec, dec.Format(), int(dec.BitDepth))
}
