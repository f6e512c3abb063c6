// SPDX-License-Identifier: EPL-2.0

package main

import (
	"bytes"
	"cmp"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ik5/audbeacon"
	"github.com/ik5/audbeacon/assets"
	"github.com/ik5/audbeacon/beacon"
	"github.com/ik5/audbeacon/formats/wav"
	"github.com/ik5/audbeacon/geo"
	"github.com/ik5/audbeacon/spatial"
)

// Scenario describes a listener walking past a set of beacons.
type Scenario struct {
	SampleRate int           `yaml:"sample_rate"`
	Quality    int           `yaml:"quality"`
	BeaconType string        `yaml:"beacon_type"`
	AssetDir   string        `yaml:"asset_dir"`
	Duration   time.Duration `yaml:"duration"`
	Tick       time.Duration `yaml:"tick"`
	Listener   Walk          `yaml:"listener"`
	Beacons    []Placement   `yaml:"beacons"`
}

// Walk is the listener's starting point and motion.
type Walk struct {
	Lat      float64 `yaml:"lat"`
	Lon      float64 `yaml:"lon"`
	Heading  float64 `yaml:"heading"`   // degrees from north
	Speed    float64 `yaml:"speed"`     // m/s along the heading
	TurnRate float64 `yaml:"turn_rate"` // degrees per second, clockwise
}

// Placement puts a beacon Distance metres away on Bearing from wherever the
// listener is At into the scenario.
type Placement struct {
	At       time.Duration `yaml:"at"`
	Bearing  float64       `yaml:"bearing"`
	Distance float64       `yaml:"distance"`
}

// LoadScenario reads a YAML scenario and fills in defaults.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	sc := Scenario{
		SampleRate: audbeacon.DefaultSampleRate,
		Quality:    spatial.DefaultQuality,
		Tick:       100 * time.Millisecond,
	}
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	return &sc, nil
}

// Validate checks the scenario for values the renderer cannot use.
func (sc *Scenario) Validate() error {
	switch {
	case sc.SampleRate <= 0:
		return fmt.Errorf("invalid sample_rate: %d", sc.SampleRate)
	case sc.Tick <= 0:
		return fmt.Errorf("invalid tick: %s", sc.Tick)
	case sc.Duration < sc.Tick:
		return fmt.Errorf("duration %s is shorter than one tick", sc.Duration)
	case sc.Listener.Lat < -90 || sc.Listener.Lat > 90:
		return fmt.Errorf("invalid listener latitude: %f", sc.Listener.Lat)
	case sc.Listener.Lon < -180 || sc.Listener.Lon > 180:
		return fmt.Errorf("invalid listener longitude: %f", sc.Listener.Lon)
	case sc.Listener.Speed < 0:
		return fmt.Errorf("invalid listener speed: %f", sc.Listener.Speed)
	}

	for i, p := range sc.Beacons {
		if p.Distance < 0 {
			return fmt.Errorf("beacon %d: negative distance", i)
		}
		if p.At < 0 || p.At >= sc.Duration {
			return fmt.Errorf("beacon %d: at %s is outside the scenario", i, p.At)
		}
	}

	return nil
}

// Render plays the scenario through a spatial mixer and writes the stereo
// mix to w as a 16-bit WAV file.
func Render(sc *Scenario, w io.WriteSeeker, logger *slog.Logger) error {
	system, err := spatial.NewSystem(sc.SampleRate,
		spatial.WithQuality(sc.Quality),
		spatial.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	var loader beacon.Loader = assets.NewSynthLoader(nil)
	if sc.AssetDir != "" {
		loader = assets.NewLoader(os.DirFS(sc.AssetDir),
			assets.WithFallback(loader),
			assets.WithLogger(logger),
		)
	}

	runtime := audbeacon.New(
		audbeacon.WithSystemFactory(func() (beacon.AudioSystem, error) { return system, nil }),
		audbeacon.WithLoader(loader),
		audbeacon.WithDirectionalFormat(beacon.Format{SampleRate: sc.SampleRate, Channels: 1}),
		audbeacon.WithEngineOptions(beacon.WithTickInterval(sc.Tick)),
		audbeacon.WithLogger(logger),
	)
	defer runtime.Close()

	engine, err := runtime.CreateEngine()
	if err != nil {
		return err
	}
	if sc.BeaconType != "" {
		if err := runtime.SetBeaconType(engine, sc.BeaconType); err != nil {
			return err
		}
	}

	pending := slices.Clone(sc.Beacons)
	slices.SortStableFunc(pending, func(a, b Placement) int { return cmp.Compare(a.At, b.At) })

	var (
		pcm     bytes.Buffer
		walk    = sc.Listener
		frames  = int(int64(sc.SampleRate) * int64(sc.Tick) / int64(time.Second))
		steps   = int(sc.Duration / sc.Tick)
		stepLen = sc.Tick.Seconds()
	)

	for step := range steps {
		now := time.Duration(step) * sc.Tick

		if err := runtime.UpdateGeometry(engine, walk.Lat, walk.Lon, walk.Heading); err != nil {
			return fmt.Errorf("tick %d: %w", step, err)
		}

		for len(pending) > 0 && pending[0].At <= now {
			p := pending[0]
			pending = pending[1:]

			lat, lon := geo.DestinationPoint(walk.Lat, walk.Lon, p.Bearing, p.Distance)
			id, err := runtime.CreateDirectionalBeacon(engine, lat, lon)
			if err != nil {
				return fmt.Errorf("beacon at %s: %w", p.At, err)
			}
			logger.Debug("beacon placed", "id", id, "at", now, "lat", lat, "lon", lon)
		}

		if err := system.Render(&pcm, frames); err != nil {
			return fmt.Errorf("tick %d: %w", step, err)
		}

		walk.Lat, walk.Lon = geo.DestinationPoint(walk.Lat, walk.Lon, walk.Heading, walk.Speed*stepLen)
		walk.Heading = geo.NormalizeAngle(walk.Heading + walk.TurnRate*stepLen)
	}

	if err := wav.WriteWAV16(w, sc.SampleRate, 2, pcm.Bytes()); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	logger.Info("scenario rendered",
		"ticks", steps,
		"frames", steps*frames,
		"beacons", len(sc.Beacons),
	)

	return nil
}
