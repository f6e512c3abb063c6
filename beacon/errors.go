// SPDX-License-Identifier: EPL-2.0

package beacon

import "errors"

var (
	// ErrEndOfStream is returned by a pull when the source has no more audio.
	// It is a terminal state, not a failure.
	ErrEndOfStream = errors.New("end of stream")

	ErrNoBuffers     = errors.New("directional source needs at least one buffer")
	ErrEmptyBuffer   = errors.New("sample buffer is empty")
	ErrInvalidAngle  = errors.New("activation angle must be within [0, 180]")
	ErrInvalidFormat = errors.New("invalid PCM format")
	ErrNilSystem     = errors.New("audio system is nil")
	ErrNilReader     = errors.New("live stream reader is nil")
	ErrNilSource     = errors.New("beacon source is nil")
	ErrEngineClosed  = errors.New("engine is closed")
)
