// SPDX-License-Identifier: EPL-2.0

// Package formats wires every decoder in this module into an
// audio.Registry.
package formats

import (
	"github.com/ik5/audbeacon/audio"
	"github.com/ik5/audbeacon/formats/aiff"
	"github.com/ik5/audbeacon/formats/mp3"
	"github.com/ik5/audbeacon/formats/vorbis"
	"github.com/ik5/audbeacon/formats/wav"
)

// Register adds the decoders under their usual file extensions.
func Register(r *audio.Registry) {
	r.Register("wav", wav.Decoder{})
	r.Register("wave", wav.Decoder{})
	r.Register("mp3", mp3.Decoder{})
	r.Register("ogg", vorbis.Decoder{})
	r.Register("oga", vorbis.Decoder{})
	r.Register("aiff", aiff.Decoder{})
	r.Register("aif", aiff.Decoder{})
}

// NewRegistry returns a registry with all decoders registered.
func NewRegistry() *audio.Registry {
	r := audio.NewRegistry()
	Register(r)
	return r
}
