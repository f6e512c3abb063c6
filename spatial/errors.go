// SPDX-License-Identifier: EPL-2.0

package spatial

import "errors"

var (
	// ErrClosed is returned by every call on a closed System.
	ErrClosed = errors.New("spatial system closed")

	// ErrUnknownSound is returned for sound handles the system never issued
	// or already released.
	ErrUnknownSound = errors.New("unknown sound")

	// ErrUnknownChannel is returned for channel handles of sounds that are
	// not playing.
	ErrUnknownChannel = errors.New("unknown channel")

	// ErrInvalidParams is returned by CreateStream for a format the mixer
	// cannot play.
	ErrInvalidParams = errors.New("invalid stream parameters")

	// ErrInvalidSampleRate is returned by NewSystem for a non-positive rate.
	ErrInvalidSampleRate = errors.New("invalid sample rate")
)
