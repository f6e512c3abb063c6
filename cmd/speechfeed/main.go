// SPDX-License-Identifier: EPL-2.0

// speechfeed streams an audio file to a running audbeacond as a speech
// beacon.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ik5/audbeacon"
	"github.com/ik5/audbeacon/internal/log"
)

var (
	serverURL = flag.String("url", "ws://localhost:9400/api/speech", "speech WebSocket endpoint")
	lat       = flag.Float64("lat", 0, "beacon latitude")
	lon       = flag.Float64("lon", 0, "beacon longitude")
	rate      = flag.Int("rate", audbeacon.DefaultSpeechSampleRate, "speech sample rate expected by the daemon")
	channels  = flag.Int("channels", 1, "speech channels expected by the daemon")
	chunk     = flag.Duration("chunk", 100*time.Millisecond, "audio per message")
	realtime  = flag.Bool("realtime", true, "pace the stream at playback speed")
)

func main() {
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: speechfeed [flags] <input.{wav|aiff|mp3|ogg}>")
		os.Exit(2)
	}

	logger := log.New("info", "text", os.Stderr)

	pcm, err := LoadPCM(flag.Arg(0), *rate, *channels)
	if err != nil {
		logger.Error("loading audio failed", "file", flag.Arg(0), "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := Config{
		URL:          *serverURL,
		Lat:          *lat,
		Lon:          *lon,
		SampleRate:   *rate,
		Channels:     *channels,
		Chunk:        *chunk,
		Realtime:     *realtime,
		WriteTimeout: 5 * time.Second,
	}

	id, err := Feed(ctx, cfg, pcm, logger)
	if err != nil {
		logger.Error("speech feed failed", "beacon", id, "error", err)
		os.Exit(1)
	}

	logger.Info("speech stream finished", "beacon", id)
}
