// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"errors"

	"github.com/ik5/audbeacon/formats/internal/intpcm"
)

var (
	ErrNotWavFile          = errors.New("not a WAV file")
	ErrNotPCM              = errors.New("only integer PCM WAV is supported")
	ErrUnsupportedBitDepth = intpcm.ErrUnsupportedBitDepth
	ErrOddPCMLength        = errors.New("pcm16 data is not a whole number of frames")
)
