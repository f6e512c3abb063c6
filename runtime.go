// SPDX-License-Identifier: EPL-2.0

package audbeacon

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/ik5/audbeacon/beacon"
)

// Kind tells directional and speech beacons apart.
type Kind string

const (
	KindDirectional Kind = "directional"
	KindSpeech      Kind = "speech"
)

// BeaconInfo is a snapshot of one beacon.
type BeaconInfo struct {
	ID       uuid.UUID `json:"id"`
	Kind     Kind      `json:"kind"`
	Lat      float64   `json:"lat"`
	Lon      float64   `json:"lon"`
	OffAxis  float64   `json:"off_axis"`
	Distance float64   `json:"distance"`
	EOF      bool      `json:"eof"`
}

// Runtime is the handle API over engines and beacons. Engines and beacons
// are named by opaque UUIDs; a failed creation returns uuid.Nil and leaves
// nothing registered. Beacons an engine culls at end of stream disappear
// from the runtime as well.
type Runtime struct {
	newSystem   SystemFactory
	loader      beacon.Loader
	types       map[string][]beacon.Layer
	defaultType string
	directional beacon.Format
	speech      SpeechConfig
	engineOpts  []beacon.Option
	logger      *slog.Logger

	mu      sync.Mutex
	engines map[uuid.UUID]*engineEntry
	closed  bool
}

// engineEntry tracks the beacons of one engine. Lock order is entry.mu, then
// the engine's own lock; neither r.mu nor entry.mu may be held while the
// engine runs its removal hook.
type engineEntry struct {
	id     uuid.UUID
	engine *beacon.Engine

	mu         sync.Mutex
	beaconType string
	beacons    map[uuid.UUID]*beaconEntry
	ids        map[*beacon.Beacon]uuid.UUID
}

type beaconEntry struct {
	beacon *beacon.Beacon
	kind   Kind
}

func New(opts ...Option) *Runtime {
	r := &Runtime{
		newSystem:   defaultSystem,
		types:       DefaultBeaconTypes,
		defaultType: DefaultBeaconType,
		directional: beacon.Format{SampleRate: DefaultSampleRate, Channels: 1},
		speech:      DefaultSpeechConfig(),
		logger:      slog.Default(),
		engines:     make(map[uuid.UUID]*engineEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.loader == nil {
		r.loader = defaultLoader()
	}

	return r
}

// CreateEngine creates an engine with a fresh audio system.
func (r *Runtime) CreateEngine() (uuid.UUID, error) {
	sys, err := r.newSystem()
	if err != nil {
		r.logger.Error("creating audio system failed", "error", err)
		return uuid.Nil, fmt.Errorf("creating audio system: %w", err)
	}

	entry := &engineEntry{
		id:         uuid.New(),
		beaconType: r.defaultType,
		beacons:    make(map[uuid.UUID]*beaconEntry),
		ids:        make(map[*beacon.Beacon]uuid.UUID),
	}

	opts := append(slices.Clone(r.engineOpts),
		beacon.WithLogger(r.logger.With("engine", entry.id)),
		beacon.WithOnRemove(entry.forget),
	)
	eng, err := beacon.NewEngine(sys, opts...)
	if err != nil {
		_ = sys.Close()
		return uuid.Nil, fmt.Errorf("creating engine: %w", err)
	}
	entry.engine = eng

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = eng.Close()
		return uuid.Nil, ErrClosed
	}
	r.engines[entry.id] = entry
	r.mu.Unlock()

	r.logger.Info("engine created", "engine", entry.id)

	return entry.id, nil
}

// DestroyEngine destroys every beacon of the engine and its audio system.
func (r *Runtime) DestroyEngine(id uuid.UUID) error {
	r.mu.Lock()
	entry, ok := r.engines[id]
	delete(r.engines, id)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEngine, id)
	}

	err := entry.engine.Close()
	r.logger.Info("engine destroyed", "engine", id)

	return err
}

// UpdateGeometry moves the engine's listener. Call it once per tick.
func (r *Runtime) UpdateGeometry(id uuid.UUID, lat, lon, heading float64) error {
	entry, err := r.entry(id)
	if err != nil {
		return err
	}

	return entry.engine.UpdateGeometry(lat, lon, heading)
}

// SetBeaconType selects the layer set for directional beacons created after
// the call. Existing beacons keep their layers.
func (r *Runtime) SetBeaconType(id uuid.UUID, name string) error {
	if _, ok := r.types[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownBeaconType, name)
	}

	entry, err := r.entry(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	entry.beaconType = name
	entry.mu.Unlock()

	return nil
}

// BeaconType returns the engine's current beacon type.
func (r *Runtime) BeaconType(id uuid.UUID) (string, error) {
	entry, err := r.entry(id)
	if err != nil {
		return "", err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	return entry.beaconType, nil
}

// BeaconTypes returns the known beacon type names, sorted.
func (r *Runtime) BeaconTypes() []string {
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}

// CreateDirectionalBeacon places a looping beacon of the engine's current
// type at (lat, lon).
func (r *Runtime) CreateDirectionalBeacon(id uuid.UUID, lat, lon float64) (uuid.UUID, error) {
	entry, err := r.entry(id)
	if err != nil {
		return uuid.Nil, err
	}

	entry.mu.Lock()
	name := entry.beaconType
	entry.mu.Unlock()

	src, err := beacon.LoadDirectionalSource(r.loader, r.directional, r.types[name])
	if err != nil {
		r.logger.Error("loading beacon assets failed", "engine", id, "type", name, "error", err)
		return uuid.Nil, fmt.Errorf("loading %s beacon: %w", name, err)
	}

	return entry.add(src, KindDirectional, lat, lon)
}

// CreateSpeechBeacon places a beacon at (lat, lon) that plays speech read
// from stream until it ends. The beacon owns stream and closes it if it is
// an io.Closer, including when creation fails.
func (r *Runtime) CreateSpeechBeacon(id uuid.UUID, lat, lon float64, stream io.Reader) (uuid.UUID, error) {
	entry, err := r.entry(id)
	if err != nil {
		if c, ok := stream.(io.Closer); ok {
			_ = c.Close()
		}
		return uuid.Nil, err
	}

	src, err := beacon.NewLiveSource(stream, r.speech.Format, r.speech.ChunkBytes,
		beacon.WithReadTimeout(r.speech.readTimeout()),
		beacon.WithEOFHeuristic(r.speech.EOFHeuristic),
	)
	if err != nil {
		if c, ok := stream.(io.Closer); ok {
			_ = c.Close()
		}
		return uuid.Nil, fmt.Errorf("creating speech source: %w", err)
	}

	return entry.add(src, KindSpeech, lat, lon)
}

// DestroyBeacon removes and releases a beacon. Destroying a beacon that is
// already gone is a no-op.
func (r *Runtime) DestroyBeacon(engineID, beaconID uuid.UUID) error {
	entry, err := r.entry(engineID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	be, ok := entry.beacons[beaconID]
	if ok {
		delete(entry.beacons, beaconID)
		delete(entry.ids, be.beacon)
	}
	entry.mu.Unlock()

	if !ok {
		return nil
	}

	return be.beacon.Close()
}

// Beacon returns a snapshot of one beacon.
func (r *Runtime) Beacon(engineID, beaconID uuid.UUID) (BeaconInfo, error) {
	entry, err := r.entry(engineID)
	if err != nil {
		return BeaconInfo{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	be, ok := entry.beacons[beaconID]
	if !ok {
		return BeaconInfo{}, fmt.Errorf("%w: %s", ErrUnknownBeacon, beaconID)
	}

	return be.info(beaconID), nil
}

// Beacons returns a snapshot of every beacon of the engine.
func (r *Runtime) Beacons(id uuid.UUID) ([]BeaconInfo, error) {
	entry, err := r.entry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	out := make([]BeaconInfo, 0, len(entry.beacons))
	for bid, be := range entry.beacons {
		out = append(out, be.info(bid))
	}
	slices.SortFunc(out, func(a, b BeaconInfo) int { return bytes.Compare(a.ID[:], b.ID[:]) })

	return out, nil
}

// Engines returns the ids of every live engine.
func (r *Runtime) Engines() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(r.engines))
	for id := range r.engines {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })

	return ids
}

// Close destroys every engine. The runtime accepts no new engines afterwards.
func (r *Runtime) Close() error {
	r.mu.Lock()
	r.closed = true
	entries := make([]*engineEntry, 0, len(r.engines))
	for id, entry := range r.engines {
		entries = append(entries, entry)
		delete(r.engines, id)
	}
	r.mu.Unlock()

	var errs []error
	for _, entry := range entries {
		if err := entry.engine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("engine %s: %w", entry.id, err))
		}
	}

	return errors.Join(errs...)
}

func (r *Runtime) entry(id uuid.UUID) (*engineEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.engines[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, id)
	}

	return entry, nil
}

// add creates the beacon and registers it in one critical section, so a
// removal hook for it cannot run before it is known.
func (e *engineEntry) add(src beacon.Source, kind Kind, lat, lon float64) (uuid.UUID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := beacon.New(e.engine, lat, lon, src)
	if err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()
	e.beacons[id] = &beaconEntry{beacon: b, kind: kind}
	e.ids[b] = id

	return id, nil
}

// forget is the engine's removal hook.
func (e *engineEntry) forget(b *beacon.Beacon) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if id, ok := e.ids[b]; ok {
		delete(e.ids, b)
		delete(e.beacons, id)
	}
}

func (be *beaconEntry) info(id uuid.UUID) BeaconInfo {
	lat, lon := be.beacon.Position()
	src := be.beacon.Source()

	return BeaconInfo{
		ID:       id,
		Kind:     be.kind,
		Lat:      lat,
		Lon:      lon,
		OffAxis:  src.OffAxisAngle(),
		Distance: src.Distance(),
		EOF:      be.beacon.IsEOF(),
	}
}
