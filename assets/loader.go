// SPDX-License-Identifier: EPL-2.0

package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/ik5/audbeacon/audio"
	"github.com/ik5/audbeacon/beacon"
	"github.com/ik5/audbeacon/formats"
)

// Loader decodes beacon assets from a file system into PCM16 buffers. Every
// Load decodes again; decoded buffers are owned by the source they feed.
type Loader struct {
	fsys     fs.FS
	registry *audio.Registry
	fallback beacon.Loader
	logger   *slog.Logger
}

type Option func(*Loader)

// WithRegistry replaces the default registry of every decoder in formats.
func WithRegistry(r *audio.Registry) Option {
	return func(l *Loader) { l.registry = r }
}

// WithFallback consults fallback for assets missing from the file system.
func WithFallback(fallback beacon.Loader) Option {
	return func(l *Loader) { l.fallback = fallback }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func NewLoader(fsys fs.FS, opts ...Option) *Loader {
	l := &Loader{
		fsys:   fsys,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.registry == nil {
		l.registry = formats.NewRegistry()
	}

	return l
}

// Load implements beacon.Loader.
func (l *Loader) Load(asset string, f beacon.Format) ([]byte, error) {
	start := time.Now()

	file, err := l.fsys.Open(asset)
	if errors.Is(err, fs.ErrNotExist) && l.fallback != nil {
		l.logger.Debug("asset not on disk, using fallback", "asset", asset)
		return l.fallback.Load(asset, f)
	}
	if err != nil {
		return nil, fmt.Errorf("opening asset: %w", err)
	}
	defer file.Close()

	src, err := l.registry.Open(asset, file)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	pcm, err := audio.ConvertPCM16(src, f.SampleRate, f.Channels)
	if err != nil {
		return nil, fmt.Errorf("decoding %q: %w", asset, err)
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptyAsset, asset)
	}

	l.logger.Debug("asset decoded",
		"asset", asset,
		"source_rate", src.SampleRate(),
		"source_channels", src.Channels(),
		"bytes", len(pcm),
		"took", time.Since(start),
	)

	return pcm, nil
}
