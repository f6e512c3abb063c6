// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ik5/audbeacon/audio"
	"github.com/ik5/audbeacon/formats"
)

// Config holds the feeder settings.
type Config struct {
	URL          string        // speech endpoint, e.g. "ws://localhost:9400/api/speech"
	Lat, Lon     float64       // beacon position
	SampleRate   int           // must match the daemon's speech format
	Channels     int           // must match the daemon's speech format
	Chunk        time.Duration // audio per WebSocket message
	Realtime     bool          // pace messages at playback speed
	WriteTimeout time.Duration
}

// control mirrors the daemon's control messages.
type control struct {
	Type  string    `json:"type"`
	ID    uuid.UUID `json:"id,omitempty"`
	Error string    `json:"error,omitempty"`
}

// LoadPCM decodes an audio file and converts it to PCM16 in the given
// format.
func LoadPCM(path string, rate, channels int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, err := formats.NewRegistry().Open(filepath.Base(path), f)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return audio.ConvertPCM16(src, rate, channels)
}

// Endpoint adds the beacon position to the speech URL.
func (c Config) Endpoint() (string, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(c.Lon, 'f', -1, 64))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Feed streams pcm to a new speech beacon and returns its id once the
// daemon confirms the end of the stream.
func Feed(ctx context.Context, cfg Config, pcm []byte, logger *slog.Logger) (uuid.UUID, error) {
	endpoint, err := cfg.Endpoint()
	if err != nil {
		return uuid.Nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	var msg control
	if err := conn.ReadJSON(&msg); err != nil {
		return uuid.Nil, fmt.Errorf("reading beacon id: %w", err)
	}
	if msg.Type != "beacon" {
		return uuid.Nil, fmt.Errorf("daemon refused the stream: %s", msg.Error)
	}
	id := msg.ID
	logger.Info("speech beacon created", "id", id, "bytes", len(pcm))

	frame := 2 * cfg.Channels
	chunk := int(int64(cfg.SampleRate)*int64(cfg.Chunk)/int64(time.Second)) * frame
	if chunk <= 0 {
		chunk = frame
	}

	var ticker *time.Ticker
	if cfg.Realtime {
		ticker = time.NewTicker(cfg.Chunk)
		defer ticker.Stop()
	}

	for off := 0; off < len(pcm); off += chunk {
		if ticker != nil && off > 0 {
			select {
			case <-ctx.Done():
				return id, ctx.Err()
			case <-ticker.C:
			}
		}

		end := min(off+chunk, len(pcm))
		if err := write(conn, cfg.WriteTimeout, websocket.BinaryMessage, pcm[off:end]); err != nil {
			return id, fmt.Errorf("sending audio: %w", err)
		}
	}

	if err := write(conn, cfg.WriteTimeout, websocket.TextMessage, []byte(`{"type":"end"}`)); err != nil {
		return id, fmt.Errorf("sending end: %w", err)
	}

	for {
		if err := conn.ReadJSON(&msg); err != nil {
			return id, fmt.Errorf("waiting for end: %w", err)
		}
		if msg.Type == "ended" {
			return id, nil
		}
		if msg.Type == "error" {
			return id, errors.New(msg.Error)
		}
	}
}

func write(conn *websocket.Conn, timeout time.Duration, kind int, data []byte) error {
	if timeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	}

	return conn.WriteMessage(kind, data)
}
