// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"errors"
	"sync"

	"github.com/ik5/audbeacon/beacon"
)

// ErrUnknownSound is returned by System for handles it never issued or has
// already released.
var ErrUnknownSound = errors.New("unknown sound")

// Listener is the last listener state a System received.
type Listener struct {
	Pos, Vel, Forward, Up beacon.Vector
}

// System is an in-memory beacon.AudioSystem that records every call. Errors
// placed in the Fail* fields are returned by the matching call.
type System struct {
	FailCreate     error
	FailPlay       error
	FailSetChannel error
	FailListener   error
	FailUpdate     error
	FailClose      error

	mu        sync.Mutex
	next      uint64
	streams   map[beacon.SoundHandle]*Stream
	channels  map[beacon.ChannelHandle]beacon.SoundHandle
	released  []beacon.SoundHandle
	listener  Listener
	listeners int
	updates   int
	closed    bool
}

// Stream is a sound created through System.
type Stream struct {
	Params  beacon.StreamParams
	Pull    beacon.PullFunc
	Channel beacon.ChannelHandle
	Pos     beacon.Vector
	Vel     beacon.Vector
}

func NewSystem() *System {
	return &System{
		streams:  make(map[beacon.SoundHandle]*Stream),
		channels: make(map[beacon.ChannelHandle]beacon.SoundHandle),
	}
}

func (s *System) CreateStream(params beacon.StreamParams, pull beacon.PullFunc) (beacon.SoundHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailCreate != nil {
		return 0, s.FailCreate
	}

	s.next++
	h := beacon.SoundHandle(s.next)
	s.streams[h] = &Stream{Params: params, Pull: pull}

	return h, nil
}

func (s *System) Play(sound beacon.SoundHandle) (beacon.ChannelHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailPlay != nil {
		return 0, s.FailPlay
	}

	st, ok := s.streams[sound]
	if !ok {
		return 0, ErrUnknownSound
	}

	s.next++
	ch := beacon.ChannelHandle(s.next)
	st.Channel = ch
	s.channels[ch] = sound

	return ch, nil
}

func (s *System) SetChannel3D(channel beacon.ChannelHandle, pos, vel beacon.Vector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailSetChannel != nil {
		return s.FailSetChannel
	}

	sound, ok := s.channels[channel]
	if !ok {
		return ErrUnknownSound
	}
	s.streams[sound].Pos = pos
	s.streams[sound].Vel = vel

	return nil
}

func (s *System) SetListener3D(pos, vel, forward, up beacon.Vector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailListener != nil {
		return s.FailListener
	}
	s.listener = Listener{Pos: pos, Vel: vel, Forward: forward, Up: up}
	s.listeners++

	return nil
}

func (s *System) Release(sound beacon.SoundHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.streams[sound]
	if !ok {
		return ErrUnknownSound
	}
	delete(s.channels, st.Channel)
	delete(s.streams, sound)
	s.released = append(s.released, sound)

	return nil
}

func (s *System) Update() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailUpdate != nil {
		return s.FailUpdate
	}
	s.updates++

	return nil
}

func (s *System) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return s.FailClose
}

// Pull invokes the pull function of sound with an n byte buffer, the way
// the audio goroutine would.
func (s *System) Pull(sound beacon.SoundHandle, n int) ([]byte, error) {
	s.mu.Lock()
	st, ok := s.streams[sound]
	s.mu.Unlock()

	if !ok {
		return nil, ErrUnknownSound
	}

	dst := make([]byte, n)
	err := st.Pull(dst)

	return dst, err
}

// Stream returns the live stream for sound.
func (s *System) Stream(sound beacon.SoundHandle) (Stream, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.streams[sound]
	if !ok {
		return Stream{}, false
	}

	return *st, true
}

// Sounds returns the handles of all live streams.
func (s *System) Sounds() []beacon.SoundHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]beacon.SoundHandle, 0, len(s.streams))
	for h := range s.streams {
		out = append(out, h)
	}

	return out
}

func (s *System) Released() []beacon.SoundHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]beacon.SoundHandle(nil), s.released...)
}

func (s *System) Listener() Listener {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.listener
}

func (s *System) Updates() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updates
}

func (s *System) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}
