// SPDX-License-Identifier: EPL-2.0

package beacon

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/ik5/audbeacon/geo"
)

// DefaultTickInterval is the nominal period between geometry updates.
const DefaultTickInterval = 50 * time.Millisecond

const (
	DefaultMinDistance = 10.0
	DefaultMaxDistance = 5000.0
)

// Engine owns the audio system, the listener state and the registry of live
// beacons. The registry is only touched under mu; pulls never take it.
type Engine struct {
	system      AudioSystem
	logger      *slog.Logger
	tick        time.Duration
	minDistance float64
	maxDistance float64
	onRemove    func(*Beacon)

	mu       sync.Mutex
	beacons  map[*Beacon]struct{}
	closed   bool
	listener listener
}

type listener struct {
	valid   bool
	lat     float64
	lon     float64
	heading float64
	pos     Vector
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTickInterval sets the assumed period between UpdateGeometry calls used
// to derive listener velocity. The period is not measured.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.tick = d
		}
	}
}

// WithDistanceRange sets the 3D min/max distance given to every beacon stream.
func WithDistanceRange(minDistance, maxDistance float64) Option {
	return func(e *Engine) {
		e.minDistance = minDistance
		e.maxDistance = maxDistance
	}
}

// WithOnRemove registers fn to be called for every beacon the engine culls
// or drains. fn runs after the registry lock is released.
func WithOnRemove(fn func(*Beacon)) Option {
	return func(e *Engine) { e.onRemove = fn }
}

// NewEngine takes ownership of system.
func NewEngine(system AudioSystem, opts ...Option) (*Engine, error) {
	if system == nil {
		return nil, ErrNilSystem
	}

	e := &Engine{
		system:      system,
		logger:      slog.Default(),
		tick:        DefaultTickInterval,
		minDistance: DefaultMinDistance,
		maxDistance: DefaultMaxDistance,
		beacons:     make(map[*Beacon]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// System returns the audio system the engine drives.
func (e *Engine) System() AudioSystem { return e.system }

// UpdateGeometry moves the listener. Beacons that reached end of stream are
// removed and destroyed, every other beacon gets its geometry recomputed, and
// the listener attributes are pushed to the audio system before it is ticked.
func (e *Engine) UpdateGeometry(lat, lon, heading float64) error {
	pos := Vector{X: lon, Z: lat}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}

	var vel Vector
	if e.listener.valid {
		vel = pos.Sub(e.listener.pos).Scale(float64(time.Second) / float64(e.tick))
	}
	e.listener = listener{valid: true, lat: lat, lon: lon, heading: heading, pos: pos}

	var culled []*Beacon
	for b := range e.beacons {
		if b.IsEOF() {
			delete(e.beacons, b)
			_ = b.release()
			culled = append(culled, b)
			continue
		}
		b.UpdateGeometry(heading, lat, lon)
	}

	rads := geo.ToRadians(heading)
	forward := Vector{X: math.Sin(rads), Z: math.Cos(rads)}
	up := Vector{Y: 1}

	err := e.system.SetListener3D(pos, vel, forward, up)
	if err != nil {
		e.logger.Error("set listener attributes failed", "error", err)
		err = fmt.Errorf("set listener attributes: %w", err)
	} else if err = e.system.Update(); err != nil {
		e.logger.Error("audio system update failed", "error", err)
		err = fmt.Errorf("update: %w", err)
	}
	e.mu.Unlock()

	e.removed(culled, "eof")

	return err
}

// AddBeacon registers b. New calls it; it only needs calling directly for a
// beacon that was removed with RemoveBeacon but not closed.
func (e *Engine) AddBeacon(b *Beacon) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	e.beacons[b] = struct{}{}

	if e.listener.valid {
		b.UpdateGeometry(e.listener.heading, e.listener.lat, e.listener.lon)
	}

	return nil
}

// RemoveBeacon deregisters b. Removing a beacon that is not registered is a
// no-op.
func (e *Engine) RemoveBeacon(b *Beacon) {
	e.mu.Lock()
	delete(e.beacons, b)
	e.mu.Unlock()
}

// Closed reports whether Close has been called.
func (e *Engine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.closed
}

// Beacons returns a snapshot of the registered beacons.
func (e *Engine) Beacons() []*Beacon {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*Beacon, 0, len(e.beacons))
	for b := range e.beacons {
		out = append(out, b)
	}

	return out
}

// Len returns the number of registered beacons.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.beacons)
}

// Close destroys every remaining beacon and then closes the audio system.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true

	drained := make([]*Beacon, 0, len(e.beacons))
	for b := range e.beacons {
		delete(e.beacons, b)
		_ = b.release()
		drained = append(drained, b)
	}

	err := e.system.Close()
	e.mu.Unlock()

	e.removed(drained, "shutdown")

	if err != nil {
		return fmt.Errorf("close audio system: %w", err)
	}

	return nil
}

func (e *Engine) removed(beacons []*Beacon, reason string) {
	for _, b := range beacons {
		lat, lon := b.Position()
		e.logger.Debug("beacon removed", "reason", reason, "lat", lat, "lon", lon)

		if e.onRemove != nil {
			e.onRemove(b)
		}
	}
}
