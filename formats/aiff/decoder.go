// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"io"

	"github.com/go-audio/aiff"

	"github.com/ik5/audbeacon/audio"
	"github.com/ik5/audbeacon/formats/internal/intpcm"
)

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	rs, err := intpcm.ReadSeeker(r)
	if err != nil {
		return nil, err
	}

	dec := aiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotAiffFile
	}
	dec.ReadInfo()

	return intpcm.New(dec, dec.Format(), int(dec.BitDepth))
}
