// SPDX-License-Identifier: EPL-2.0

package audbeacon

import "errors"

var (
	ErrUnknownEngine     = errors.New("unknown engine")
	ErrUnknownBeacon     = errors.New("unknown beacon")
	ErrUnknownBeaconType = errors.New("unknown beacon type")
	ErrClosed            = errors.New("runtime closed")
)
