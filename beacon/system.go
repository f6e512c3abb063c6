// SPDX-License-Identifier: EPL-2.0

package beacon

// Vector is a position, velocity or orientation in the audio system's space.
// Geographic positions are mapped as X = longitude, Y = 0, Z = latitude.
type Vector struct {
	X, Y, Z float64
}

func (v Vector) Sub(o Vector) Vector { return Vector{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vector) Scale(f float64) Vector { return Vector{v.X * f, v.Y * f, v.Z * f} }

// SoundHandle identifies a streaming sound created by an AudioSystem. Zero is
// never a valid handle.
type SoundHandle uint64

// ChannelHandle identifies a playing instance of a sound.
type ChannelHandle uint64

// PullFunc fills dst with PCM16 little-endian samples. It is invoked on the
// audio system's own goroutine and must not block on the engine registry.
// Returning ErrEndOfStream ends the stream; any bytes already written to dst
// are still valid audio.
type PullFunc func(dst []byte) error

// StreamParams describes a streaming sound to the audio system.
type StreamParams struct {
	SampleRate int
	Channels   int
	// ChunkBytes is how many bytes the system should request per pull.
	ChunkBytes int
	// TotalBytes is the advertised length of one loop of the stream.
	TotalBytes int
	Loop       bool

	MinDistance float64
	MaxDistance float64
}

// AudioSystem is the external 3D audio engine that mixes, pans, attenuates
// and plays the beacons. The Engine owns exactly one.
type AudioSystem interface {
	// CreateStream registers a pull-driven streaming sound.
	CreateStream(params StreamParams, pull PullFunc) (SoundHandle, error)
	// Play starts a sound and returns its channel.
	Play(sound SoundHandle) (ChannelHandle, error)
	// SetChannel3D places a playing channel.
	SetChannel3D(channel ChannelHandle, pos, vel Vector) error
	// SetListener3D places and orients the listener.
	SetListener3D(pos, vel, forward, up Vector) error
	// Release stops and frees a sound. Once it returns the sound's pull
	// function is never invoked again.
	Release(sound SoundHandle) error
	// Update advances the system's mix state once per geometry tick.
	Update() error
	// Close releases the system.
	Close() error
}
