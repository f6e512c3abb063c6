// SPDX-License-Identifier: EPL-2.0

package audbeacon

import (
	"log/slog"
	"time"

	"github.com/ik5/audbeacon/assets"
	"github.com/ik5/audbeacon/beacon"
	"github.com/ik5/audbeacon/spatial"
)

const (
	// DefaultBeaconType is the layer set directional beacons use until
	// SetBeaconType picks another.
	DefaultBeaconType = "tactile"

	DefaultSampleRate       = 44100
	DefaultSpeechSampleRate = 22050
	DefaultSpeechChunkBytes = 4410 // 100 ms of 22.05 kHz mono
	DefaultSpeechTimeout    = 20 * time.Millisecond
)

// DefaultBeaconTypes maps beacon type names to their layers. The tactile
// beacon plays the on-axis loop within 90 degrees of the heading and the
// rear loop beyond.
var DefaultBeaconTypes = map[string][]beacon.Layer{
	"tactile": {
		{Asset: "tactile_on_axis.wav", Angle: 90},
		{Asset: "tactile_behind.wav", Angle: 180},
	},
	"ping": {
		{Asset: "tactile_on_axis.wav", Angle: 180},
	},
}

// SpeechConfig controls how speech beacons read their live streams.
//
// ReadTimeout bounds how long one pull waits for the stream. The pull runs
// on the mixing goroutine, so it is capped at MaxReadTimeout; zero also
// means MaxReadTimeout.
type SpeechConfig struct {
	Format       beacon.Format
	ChunkBytes   int
	ReadTimeout  time.Duration
	EOFHeuristic bool
}

// ChunkDuration is the playing time of one ChunkBytes pull.
func (c SpeechConfig) ChunkDuration() time.Duration {
	frame := c.Format.FrameBytes()
	if frame <= 0 || c.Format.SampleRate <= 0 {
		return 0
	}

	return time.Duration(c.ChunkBytes/frame) * time.Second / time.Duration(c.Format.SampleRate)
}

// MaxReadTimeout is a quarter of ChunkDuration.
func (c SpeechConfig) MaxReadTimeout() time.Duration {
	return max(c.ChunkDuration()/4, time.Microsecond)
}

func (c SpeechConfig) readTimeout() time.Duration {
	limit := c.MaxReadTimeout()
	if c.ReadTimeout <= 0 || c.ReadTimeout > limit {
		return limit
	}

	return c.ReadTimeout
}

// DefaultSpeechConfig reads 22.05 kHz mono speech in 100 ms chunks.
func DefaultSpeechConfig() SpeechConfig {
	return SpeechConfig{
		Format:       beacon.Format{SampleRate: DefaultSpeechSampleRate, Channels: 1},
		ChunkBytes:   DefaultSpeechChunkBytes,
		ReadTimeout:  DefaultSpeechTimeout,
		EOFHeuristic: true,
	}
}

// SystemFactory creates the audio system of a new engine. The engine takes
// ownership of it.
type SystemFactory func() (beacon.AudioSystem, error)

// Option configures a Runtime.
type Option func(*Runtime)

func WithSystemFactory(f SystemFactory) Option {
	return func(r *Runtime) {
		if f != nil {
			r.newSystem = f
		}
	}
}

// WithLoader sets where directional beacon assets come from.
func WithLoader(l beacon.Loader) Option {
	return func(r *Runtime) {
		if l != nil {
			r.loader = l
		}
	}
}

// WithBeaconTypes replaces the known beacon types. def must be one of them.
func WithBeaconTypes(types map[string][]beacon.Layer, def string) Option {
	return func(r *Runtime) {
		if _, ok := types[def]; ok {
			r.types = types
			r.defaultType = def
		}
	}
}

// WithDirectionalFormat sets the PCM format assets are decoded to.
func WithDirectionalFormat(f beacon.Format) Option {
	return func(r *Runtime) { r.directional = f }
}

func WithSpeech(c SpeechConfig) Option {
	return func(r *Runtime) { r.speech = c }
}

// WithEngineOptions adds options for every engine the runtime creates.
func WithEngineOptions(opts ...beacon.Option) Option {
	return func(r *Runtime) { r.engineOpts = append(r.engineOpts, opts...) }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func defaultSystem() (beacon.AudioSystem, error) {
	sys, err := spatial.NewSystem(DefaultSampleRate)
	if err != nil {
		return nil, err
	}
	return sys, nil
}

func defaultLoader() beacon.Loader {
	return assets.NewSynthLoader(nil)
}
