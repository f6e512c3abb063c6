// SPDX-License-Identifier: EPL-2.0

// Package config loads the daemon configuration from defaults, an optional
// YAML file and AUDBEACON_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ik5/audbeacon"
	"github.com/ik5/audbeacon/beacon"
)

// EnvPrefix prefixes every environment override, e.g.
// AUDBEACON_SERVER_PORT=9100.
const EnvPrefix = "AUDBEACON"

// Config is the root configuration structure
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Beacon  BeaconConfig  `mapstructure:"beacon"`
	Speech  SpeechConfig  `mapstructure:"speech"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// EngineConfig configures the software audio system and the geometry tick.
type EngineConfig struct {
	SampleRate      int           `mapstructure:"sample_rate"`
	SpeakerChannels int           `mapstructure:"speaker_channels"`
	TickInterval    time.Duration `mapstructure:"tick_interval"`
	MinDistance     float64       `mapstructure:"min_distance"`
	MaxDistance     float64       `mapstructure:"max_distance"`
	OutputBuffer    time.Duration `mapstructure:"output_buffer"`
	ResampleQuality int           `mapstructure:"resample_quality"`
}

// BeaconConfig configures directional beacons.
type BeaconConfig struct {
	Type       string                    `mapstructure:"type"`
	AssetDir   string                    `mapstructure:"asset_dir"` // empty means synthesized tones only
	SampleRate int                       `mapstructure:"sample_rate"`
	Types      map[string][]beacon.Layer `mapstructure:"types"`
}

// SpeechConfig configures speech beacons.
type SpeechConfig struct {
	SampleRate   int           `mapstructure:"sample_rate"`
	Channels     int           `mapstructure:"channels"`
	ChunkBytes   int           `mapstructure:"chunk_bytes"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	EOFHeuristic bool          `mapstructure:"eof_heuristic"`
	BufferBytes  int           `mapstructure:"buffer_bytes"` // per speech pipe, 0 is unbounded
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			SampleRate:      audbeacon.DefaultSampleRate,
			SpeakerChannels: 2,
			TickInterval:    beacon.DefaultTickInterval,
			MinDistance:     beacon.DefaultMinDistance,
			MaxDistance:     beacon.DefaultMaxDistance,
			OutputBuffer:    100 * time.Millisecond,
			ResampleQuality: 4,
		},
		Beacon: BeaconConfig{
			Type:       audbeacon.DefaultBeaconType,
			SampleRate: audbeacon.DefaultSampleRate,
			Types:      defaultTypes(),
		},
		Speech: SpeechConfig{
			SampleRate:   audbeacon.DefaultSpeechSampleRate,
			Channels:     1,
			ChunkBytes:   audbeacon.DefaultSpeechChunkBytes,
			ReadTimeout:  audbeacon.DefaultSpeechTimeout,
			EOFHeuristic: true,
			BufferBytes:  1 << 20,
		},
		Server: ServerConfig{
			Port:            9400,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			GracefulTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from file and environment. A path that does not
// exist is not an error; the defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if len(cfg.Beacon.Types) == 0 {
		cfg.Beacon.Types = defaultTypes()
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("engine.sample_rate", d.Engine.SampleRate)
	v.SetDefault("engine.speaker_channels", d.Engine.SpeakerChannels)
	v.SetDefault("engine.tick_interval", d.Engine.TickInterval.String())
	v.SetDefault("engine.min_distance", d.Engine.MinDistance)
	v.SetDefault("engine.max_distance", d.Engine.MaxDistance)
	v.SetDefault("engine.output_buffer", d.Engine.OutputBuffer.String())
	v.SetDefault("engine.resample_quality", d.Engine.ResampleQuality)

	v.SetDefault("beacon.type", d.Beacon.Type)
	v.SetDefault("beacon.asset_dir", d.Beacon.AssetDir)
	v.SetDefault("beacon.sample_rate", d.Beacon.SampleRate)

	v.SetDefault("speech.sample_rate", d.Speech.SampleRate)
	v.SetDefault("speech.channels", d.Speech.Channels)
	v.SetDefault("speech.chunk_bytes", d.Speech.ChunkBytes)
	v.SetDefault("speech.read_timeout", d.Speech.ReadTimeout.String())
	v.SetDefault("speech.eof_heuristic", d.Speech.EOFHeuristic)
	v.SetDefault("speech.buffer_bytes", d.Speech.BufferBytes)

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout.String())
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout.String())
	v.SetDefault("server.graceful_timeout", d.Server.GracefulTimeout.String())

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

func defaultTypes() map[string][]beacon.Layer {
	types := maps.Clone(audbeacon.DefaultBeaconTypes)
	for name, layers := range types {
		types[name] = append([]beacon.Layer(nil), layers...)
	}
	return types
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Engine.SampleRate < 8000 || c.Engine.SampleRate > 192000 {
		return fmt.Errorf("engine sample_rate must be between 8000 and 192000, got %d", c.Engine.SampleRate)
	}
	if c.Engine.SpeakerChannels != 2 {
		return fmt.Errorf("engine speaker_channels must be 2, got %d", c.Engine.SpeakerChannels)
	}
	if c.Engine.TickInterval <= 0 {
		return fmt.Errorf("engine tick_interval must be positive, got %v", c.Engine.TickInterval)
	}
	if c.Engine.MinDistance <= 0 || c.Engine.MaxDistance <= c.Engine.MinDistance {
		return fmt.Errorf("engine distances need 0 < min_distance < max_distance, got %v and %v",
			c.Engine.MinDistance, c.Engine.MaxDistance)
	}
	if c.Engine.ResampleQuality < 1 || c.Engine.ResampleQuality > 64 {
		return fmt.Errorf("engine resample_quality must be between 1 and 64, got %d", c.Engine.ResampleQuality)
	}

	if c.Beacon.SampleRate <= 0 {
		return fmt.Errorf("beacon sample_rate must be positive, got %d", c.Beacon.SampleRate)
	}
	if _, ok := c.Beacon.Types[c.Beacon.Type]; !ok {
		return fmt.Errorf("beacon type %q is not among the configured types", c.Beacon.Type)
	}
	for name, layers := range c.Beacon.Types {
		if len(layers) == 0 {
			return fmt.Errorf("beacon type %q has no layers", name)
		}
		for _, l := range layers {
			if l.Asset == "" || l.Angle < 0 || l.Angle > 180 {
				return fmt.Errorf("beacon type %q: invalid layer %+v", name, l)
			}
		}
	}

	if c.Speech.SampleRate <= 0 {
		return fmt.Errorf("speech sample_rate must be positive, got %d", c.Speech.SampleRate)
	}
	if c.Speech.Channels != 1 && c.Speech.Channels != 2 {
		return fmt.Errorf("speech channels must be 1 or 2, got %d", c.Speech.Channels)
	}
	if frame := 2 * c.Speech.Channels; c.Speech.ChunkBytes < frame || c.Speech.ChunkBytes%frame != 0 {
		return fmt.Errorf("speech chunk_bytes must be a positive multiple of %d, got %d", frame, c.Speech.ChunkBytes)
	}
	if c.Speech.ReadTimeout < 0 {
		return fmt.Errorf("speech read_timeout must not be negative, got %v", c.Speech.ReadTimeout)
	}
	if limit := c.SpeechOptions().MaxReadTimeout(); c.Speech.ReadTimeout > limit {
		return fmt.Errorf("speech read_timeout must be at most %v (a quarter of a chunk), got %v", limit, c.Speech.ReadTimeout)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid logging format: %q", c.Logging.Format)
	}

	return nil
}

// SpeechOptions converts the speech section for the runtime.
func (c *Config) SpeechOptions() audbeacon.SpeechConfig {
	return audbeacon.SpeechConfig{
		Format:       beacon.Format{SampleRate: c.Speech.SampleRate, Channels: c.Speech.Channels},
		ChunkBytes:   c.Speech.ChunkBytes,
		ReadTimeout:  c.Speech.ReadTimeout,
		EOFHeuristic: c.Speech.EOFHeuristic,
	}
}

// DirectionalFormat is the format of decoded directional assets. They are
// mono; the mixer pans them.
func (c *Config) DirectionalFormat() beacon.Format {
	return beacon.Format{SampleRate: c.Beacon.SampleRate, Channels: 1}
}

// AssetDirExists reports whether the configured asset directory exists.
func (c *Config) AssetDirExists() bool {
	if c.Beacon.AssetDir == "" {
		return false
	}
	info, err := os.Stat(c.Beacon.AssetDir)
	return err == nil && info.IsDir()
}
