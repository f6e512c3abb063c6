// SPDX-License-Identifier: EPL-2.0

package beacon

import (
	"math"
	"sync/atomic"
)

// Source supplies PCM chunks to the audio system and receives geometry from
// the update goroutine. Only DirectionalSource and LiveSource implement it.
type Source interface {
	// Pull fills dst completely or returns ErrEndOfStream.
	Pull(dst []byte) error
	// SetOffAxisAngle publishes the listener's off-axis angle in degrees.
	// It never blocks and is safe to call while a Pull is running.
	SetOffAxisAngle(deg float64)
	// SetDistance publishes the listener distance in meters. Advisory.
	SetDistance(meters float64)
	OffAxisAngle() float64
	Distance() float64
	// Params describes the stream the source produces.
	Params() StreamParams
	Close() error

	sealed()
}

// geometry is written by the update goroutine and read by the pull goroutine.
type geometry struct {
	offAxis  atomic.Uint64
	distance atomic.Uint64
}

func (g *geometry) SetOffAxisAngle(deg float64) { g.offAxis.Store(math.Float64bits(deg)) }
func (g *geometry) SetDistance(meters float64)  { g.distance.Store(math.Float64bits(meters)) }

// OffAxisAngle returns the most recently published off-axis angle.
func (g *geometry) OffAxisAngle() float64 { return math.Float64frombits(g.offAxis.Load()) }

// Distance returns the most recently published distance.
func (g *geometry) Distance() float64 { return math.Float64frombits(g.distance.Load()) }
