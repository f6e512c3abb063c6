// SPDX-License-Identifier: EPL-2.0

package beacon

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ik5/audbeacon/geo"
)

// Beacon binds a geographic position to one Source playing through the
// engine's audio system.
type Beacon struct {
	engine *Engine // not owned

	lat, lon float64
	src      Source
	sound    SoundHandle
	channel  ChannelHandle

	eof       atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New creates a beacon at (lat, lon), starts its stream on the engine's audio
// system and registers it with the engine. The beacon takes ownership of src
// and closes it on any failure; nothing stays registered when New fails.
func New(e *Engine, lat, lon float64, src Source) (*Beacon, error) {
	if src == nil {
		return nil, ErrNilSource
	}
	if e.Closed() {
		_ = src.Close()
		return nil, ErrEngineClosed
	}

	b := &Beacon{
		engine: e,
		lat:    lat,
		lon:    lon,
		src:    src,
	}

	params := src.Params()
	params.MinDistance = e.minDistance
	params.MaxDistance = e.maxDistance

	sound, err := e.system.CreateStream(params, b.pull)
	if err != nil {
		e.logger.Error("create stream failed", "error", err)
		_ = src.Close()
		return nil, fmt.Errorf("create stream: %w", err)
	}
	b.sound = sound

	b.channel, err = e.system.Play(sound)
	if err != nil {
		e.logger.Error("play failed", "sound", sound, "error", err)
		return nil, errors.Join(fmt.Errorf("play: %w", err), b.release())
	}

	pos := Vector{X: lon, Z: lat}
	if err := e.system.SetChannel3D(b.channel, pos, Vector{}); err != nil {
		e.logger.Error("set channel attributes failed", "channel", b.channel, "error", err)
		return nil, errors.Join(fmt.Errorf("set channel attributes: %w", err), b.release())
	}

	if err := e.AddBeacon(b); err != nil {
		return nil, errors.Join(err, b.release())
	}

	e.logger.Debug("beacon created",
		"lat", lat,
		"lon", lon,
		"sound", sound,
		"chunk_bytes", params.ChunkBytes,
	)

	return b, nil
}

func (b *Beacon) pull(dst []byte) error {
	err := b.src.Pull(dst)
	if errors.Is(err, ErrEndOfStream) {
		b.eof.Store(true)
	}

	return err
}

// UpdateGeometry recomputes the off-axis angle and distance of the beacon for
// a listener at (lat, lon) facing heading degrees and publishes them to the
// source.
func (b *Beacon) UpdateGeometry(heading, lat, lon float64) {
	bearing := geo.Bearing(b.lat, b.lon, lat, lon)
	offAxis := geo.NormalizeAngle(bearing - heading)
	dist := geo.Distance(lat, lon, b.lat, b.lon)

	b.src.SetOffAxisAngle(offAxis)
	b.src.SetDistance(dist)
}

// IsEOF reports whether the source has finished. Once true it stays true.
func (b *Beacon) IsEOF() bool { return b.eof.Load() }

func (b *Beacon) Position() (lat, lon float64) { return b.lat, b.lon }
func (b *Beacon) Source() Source               { return b.src }

// Close deregisters the beacon from its engine, then releases its sound and
// source. It is safe to call more than once.
func (b *Beacon) Close() error {
	b.engine.RemoveBeacon(b)
	return b.release()
}

// release frees the sound and the source. The beacon must already be out of
// the engine registry.
func (b *Beacon) release() error {
	b.closeOnce.Do(func() {
		var errs []error
		if b.sound != 0 {
			if err := b.engine.system.Release(b.sound); err != nil {
				b.engine.logger.Error("release sound failed", "sound", b.sound, "error", err)
				errs = append(errs, fmt.Errorf("release sound: %w", err))
			}
		}
		if err := b.src.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close source: %w", err))
		}
		b.closeErr = errors.Join(errs...)
	})

	return b.closeErr
}
