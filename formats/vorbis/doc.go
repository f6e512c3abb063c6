// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis through github.com/jfreymuth/oggvorbis.
// The decoder already produces float32, so samples pass through unscaled.
package vorbis
