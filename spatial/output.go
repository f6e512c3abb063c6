// SPDX-License-Identifier: EPL-2.0

package spatial

import (
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Output plays a System on the default audio device. The device pulls the
// mix from its own goroutine, which is where the beacons' pull callbacks run.
//
// oto allows a single context per process, so at most one Output can exist.
type Output struct {
	ctx    *oto.Context
	player *oto.Player
}

// NewOutput opens the device at the system's rate. buffer is the device
// buffer length; zero lets the driver choose.
func NewOutput(s *System, buffer time.Duration) (*Output, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   s.SampleRate(),
		ChannelCount: s.Format().NumChannels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   buffer,
	})
	if err != nil {
		return nil, fmt.Errorf("opening audio device: %w", err)
	}
	<-ready

	return &Output{
		ctx:    ctx,
		player: ctx.NewPlayer(NewReader(s, s.Format())),
	}, nil
}

func (o *Output) Start() { o.player.Play() }

func (o *Output) Pause() { o.player.Pause() }

// Err reports a device failure.
func (o *Output) Err() error {
	if err := o.player.Err(); err != nil {
		return err
	}
	return o.ctx.Err()
}

func (o *Output) Close() error {
	o.player.Pause()
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("closing player: %w", err)
	}
	return nil
}
