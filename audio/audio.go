// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
	"path"
	"slices"
	"strings"
	"sync"
)

// Source is a pull stream of interleaved float32 samples in [-1, 1].
type Source interface {
	// SampleRate of the stream in Hz.
	SampleRate() int
	// Channels per frame.
	Channels() int
	// ReadSamples fills dst with whole frames and returns the number of
	// float32 values written. io.EOF may accompany the last samples.
	ReadSamples(dst []float32) (n int, err error)
	// BufSize is the read size the source works best with.
	BufSize() int
	Close() error
}

// Decoder constructs a Source from an encoded stream.
type Decoder interface {
	Decode(r io.Reader) (Source, error)
}

// Registry maps format keys ("wav", "mp3", "ogg", "aiff") to decoders.
// Keys are case-insensitive and a leading dot is ignored, so file
// extensions can be used directly.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Decoder
}

func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Decoder)}
}

func formatKey(format string) string {
	return strings.ToLower(strings.TrimPrefix(format, "."))
}

func (r *Registry) Register(format string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.codecs[formatKey(format)] = d
}

func (r *Registry) Get(format string) (Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.codecs[formatKey(format)]
	return d, ok
}

// Formats lists the registered keys in sorted order.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.codecs))
	for k := range r.codecs {
		out = append(out, k)
	}
	slices.Sort(out)

	return out
}

// Open decodes rd with the decoder registered for the extension of name.
func (r *Registry) Open(name string, rd io.Reader) (Source, error) {
	ext := path.Ext(name)

	d, ok := r.Get(ext)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}

	src, err := d.Decode(rd)
	if err != nil {
		return nil, fmt.Errorf("decoding %q: %w", name, err)
	}

	return src, nil
}
