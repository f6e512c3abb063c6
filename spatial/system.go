// SPDX-License-Identifier: EPL-2.0

package spatial

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"

	"github.com/ik5/audbeacon/beacon"
	"github.com/ik5/audbeacon/geo"
)

// DefaultQuality is the beep resampling quality used for streams whose rate
// differs from the output rate.
const DefaultQuality = 4

// System is a software beacon.AudioSystem. It mixes every playing stream
// into stereo at a fixed output rate, panning each channel by its bearing
// relative to the listener and attenuating it by distance.
//
// System is itself a beep.Streamer: whatever pulls from Stream (an Output, a
// Render call) drives the beacons' pull callbacks on that goroutine.
type System struct {
	format  beep.Format
	quality int
	logger  *slog.Logger

	mu       sync.Mutex
	next     uint64
	sounds   map[beacon.SoundHandle]*sound
	channels map[beacon.ChannelHandle]*sound
	listener listenerState
	closed   bool

	// mixMu is held for a whole mix. Release takes it after unregistering
	// a sound, so no pull of a released sound can still be in flight.
	mixMu   sync.Mutex
	playing []*sound
	scratch [][2]float64
}

type listenerState struct {
	pos, vel, forward, up beacon.Vector
}

type sound struct {
	handle  beacon.SoundHandle
	channel beacon.ChannelHandle
	params  beacon.StreamParams

	pos, vel beacon.Vector
	pan      float64
	gain     float64

	// owned by the mixing goroutine
	src   *pullStreamer
	panFx *effects.Pan
	volFx *effects.Volume
	done  bool
}

type Option func(*System)

// WithQuality sets the resampling quality, 1 to 64.
func WithQuality(q int) Option {
	return func(s *System) {
		if q >= 1 && q <= 64 {
			s.quality = q
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *System) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSystem returns a system mixing to 16-bit stereo at sampleRate.
func NewSystem(sampleRate int, opts ...Option) (*System, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSampleRate, sampleRate)
	}

	s := &System{
		format: beep.Format{
			SampleRate:  beep.SampleRate(sampleRate),
			NumChannels: 2,
			Precision:   2,
		},
		quality:  DefaultQuality,
		logger:   slog.Default(),
		sounds:   make(map[beacon.SoundHandle]*sound),
		channels: make(map[beacon.ChannelHandle]*sound),
		listener: listenerState{forward: beacon.Vector{Z: 1}, up: beacon.Vector{Y: 1}},
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Format is the PCM format Stream and Render produce.
func (s *System) Format() beep.Format { return s.format }

// SampleRate is the output rate in Hz.
func (s *System) SampleRate() int { return int(s.format.SampleRate) }

func (s *System) CreateStream(params beacon.StreamParams, pull beacon.PullFunc) (beacon.SoundHandle, error) {
	if pull == nil || params.SampleRate <= 0 ||
		params.Channels < 1 || params.Channels > 2 ||
		params.ChunkBytes <= 0 || params.ChunkBytes%(2*params.Channels) != 0 {
		return 0, fmt.Errorf("%w: %+v", ErrInvalidParams, params)
	}

	snd := &sound{
		params: params,
		gain:   1,
		src:    newPullStreamer(pull, params.Channels, params.ChunkBytes),
	}

	var st beep.Streamer = snd.src
	if rate := beep.SampleRate(params.SampleRate); rate != s.format.SampleRate {
		st = beep.Resample(s.quality, rate, s.format.SampleRate, st)
	}
	snd.panFx = &effects.Pan{Streamer: st}
	snd.volFx = &effects.Volume{Streamer: snd.panFx, Base: 2}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	s.next++
	snd.handle = beacon.SoundHandle(s.next)
	s.sounds[snd.handle] = snd

	s.logger.Debug("stream created",
		"sound", snd.handle,
		"sample_rate", params.SampleRate,
		"channels", params.Channels,
		"chunk_bytes", params.ChunkBytes,
	)

	return snd.handle, nil
}

// Play starts a sound. Playing a sound that already plays returns its
// channel.
func (s *System) Play(h beacon.SoundHandle) (beacon.ChannelHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}
	snd, ok := s.sounds[h]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownSound, h)
	}
	if snd.channel != 0 {
		return snd.channel, nil
	}

	s.next++
	snd.channel = beacon.ChannelHandle(s.next)
	s.channels[snd.channel] = snd
	s.spatialize(snd)

	return snd.channel, nil
}

func (s *System) SetChannel3D(ch beacon.ChannelHandle, pos, vel beacon.Vector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	snd, ok := s.channels[ch]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownChannel, ch)
	}

	snd.pos, snd.vel = pos, vel
	s.spatialize(snd)

	return nil
}

func (s *System) SetListener3D(pos, vel, forward, up beacon.Vector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.listener = listenerState{pos: pos, vel: vel, forward: forward, up: up}

	return nil
}

// Update recomputes pan and gain of every playing channel from the current
// listener.
func (s *System) Update() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	for _, snd := range s.channels {
		s.spatialize(snd)
	}

	return nil
}

// Release stops and frees a sound. It returns once no mix is using it.
func (s *System) Release(h beacon.SoundHandle) error {
	s.mu.Lock()
	snd, ok := s.sounds[h]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownSound, h)
	}
	delete(s.sounds, h)
	if snd.channel != 0 {
		delete(s.channels, snd.channel)
	}
	s.mu.Unlock()

	s.waitMix()

	return nil
}

// Close releases every sound. Every later call except Stream and Close fails
// with ErrClosed; Stream keeps producing silence.
func (s *System) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	n := len(s.sounds)
	clear(s.sounds)
	clear(s.channels)
	s.mu.Unlock()

	s.waitMix()

	s.logger.Debug("spatial system closed", "released", n)

	return nil
}

// waitMix returns once the mix in progress, if any, has finished.
func (s *System) waitMix() {
	s.mixMu.Lock()
	s.mixMu.Unlock()
}

// Playing returns how many channels are mixed.
func (s *System) Playing() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.channels)
}

// Stream mixes len(samples) frames of every playing channel. It always
// fills samples and never ends.
func (s *System) Stream(samples [][2]float64) (int, bool) {
	s.mixMu.Lock()
	defer s.mixMu.Unlock()

	s.mu.Lock()
	s.playing = s.playing[:0]
	for _, snd := range s.channels {
		if snd.done {
			continue
		}
		// effects.Pan moves energy from one side into the other, so the
		// louder side is scaled back to the unpanned level.
		gain := snd.gain / (1 + math.Abs(snd.pan))
		snd.panFx.Pan = snd.pan
		snd.volFx.Volume = math.Log2(gain)
		snd.volFx.Silent = gain <= 0
		s.playing = append(s.playing, snd)
	}
	s.mu.Unlock()

	clear(samples)
	if cap(s.scratch) < len(samples) {
		s.scratch = make([][2]float64, len(samples))
	}
	scratch := s.scratch[:len(samples)]

	for _, snd := range s.playing {
		for filled := 0; filled < len(samples); {
			n, ok := snd.volFx.Stream(scratch[:len(samples)-filled])
			for i := range n {
				samples[filled+i][0] += scratch[i][0]
				samples[filled+i][1] += scratch[i][1]
			}
			filled += n
			if !ok || n == 0 {
				snd.done = true
				break
			}
		}
	}
	clear(s.playing)

	return len(samples), true
}

// Err implements beep.Streamer.
func (s *System) Err() error { return nil }

// spatialize derives pan and gain of snd from the listener. Positions are
// {X: lon, Z: lat} in degrees. s.mu must be held.
func (s *System) spatialize(snd *sound) {
	l := s.listener
	lat, lon := l.pos.Z, l.pos.X
	dist := geo.Distance(lat, lon, snd.pos.Z, snd.pos.X)

	snd.gain = rolloff(dist, snd.params.MinDistance, snd.params.MaxDistance)

	if dist == 0 {
		snd.pan = 0
		return
	}
	heading := geo.ToDegrees(math.Atan2(l.forward.X, l.forward.Z))
	rel := geo.NormalizeAngle(geo.Bearing(lat, lon, snd.pos.Z, snd.pos.X) - heading)
	snd.pan = math.Sin(geo.ToRadians(rel))
}

// rolloff is inverse-distance attenuation: full gain inside minDist, min/d
// beyond it, constant past maxDist.
func rolloff(dist, minDist, maxDist float64) float64 {
	if minDist <= 0 || dist <= minDist {
		return 1
	}
	if maxDist > minDist && dist > maxDist {
		dist = maxDist
	}
	return minDist / dist
}
