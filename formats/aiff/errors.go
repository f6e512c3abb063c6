// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"errors"

	"github.com/ik5/audbeacon/formats/internal/intpcm"
)

var (
	ErrNotAiffFile         = errors.New("not an AIFF file")
	ErrUnsupportedBitDepth = intpcm.ErrUnsupportedBitDepth
)
