// SPDX-License-Identifier: EPL-2.0

package assets

import (
	"errors"

	"github.com/ik5/audbeacon/audio"
)

var (
	ErrUnknownFormat = audio.ErrUnknownFormat
	ErrUnknownAsset  = errors.New("unknown asset")
	ErrEmptyAsset    = errors.New("asset decoded to no samples")
)
