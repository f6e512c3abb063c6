// SPDX-License-Identifier: EPL-2.0

package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ik5/audbeacon/formats/wav"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// fakeDaemon accepts one speech stream and records what it receives.
type fakeDaemon struct {
	id     uuid.UUID
	refuse string

	mu       sync.Mutex
	query    string
	messages [][]byte
}

func (d *fakeDaemon) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	d.mu.Lock()
	d.query = r.URL.RawQuery
	d.mu.Unlock()

	if d.refuse != "" {
		_ = conn.WriteJSON(control{Type: "error", Error: d.refuse})
		return
	}
	_ = conn.WriteJSON(control{Type: "beacon", ID: d.id})

	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind == websocket.TextMessage && strings.Contains(string(msg), `"end"`) {
			_ = conn.WriteJSON(control{Type: "ended", ID: d.id})
			return
		}

		d.mu.Lock()
		d.messages = append(d.messages, msg)
		d.mu.Unlock()
	}
}

func startDaemon(t *testing.T, d *fakeDaemon) Config {
	t.Helper()

	srv := httptest.NewServer(d)
	t.Cleanup(srv.Close)

	return Config{
		URL:        "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/speech",
		Lat:        51.5,
		Lon:        -0.12,
		SampleRate: 8000,
		Channels:   1,
		Chunk:      10 * time.Millisecond,
	}
}

func TestFeed(t *testing.T) {
	daemon := &fakeDaemon{id: uuid.New()}
	cfg := startDaemon(t, daemon)

	pcm := make([]byte, 400)
	for i := range pcm {
		pcm[i] = byte(i)
	}

	id, err := Feed(context.Background(), cfg, pcm, slog.Default())
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if id != daemon.id {
		t.Errorf("Feed() id = %s, want %s", id, daemon.id)
	}

	daemon.mu.Lock()
	defer daemon.mu.Unlock()

	// 10 ms of 8 kHz mono is 160 bytes
	if len(daemon.messages) != 3 || len(daemon.messages[0]) != 160 || len(daemon.messages[2]) != 80 {
		sizes := make([]int, len(daemon.messages))
		for i, m := range daemon.messages {
			sizes[i] = len(m)
		}
		t.Errorf("message sizes = %v, want [160 160 80]", sizes)
	}
	if got := bytes.Join(daemon.messages, nil); !bytes.Equal(got, pcm) {
		t.Error("daemon received different audio")
	}
	if daemon.query != "lat=51.5&lon=-0.12" {
		t.Errorf("query = %q", daemon.query)
	}
}

func TestFeed_Realtime(t *testing.T) {
	daemon := &fakeDaemon{id: uuid.New()}
	cfg := startDaemon(t, daemon)
	cfg.Realtime = true

	start := time.Now()
	if _, err := Feed(context.Background(), cfg, make([]byte, 160*4), slog.Default()); err != nil {
		t.Fatalf("Feed() error = %v", err)
	}

	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("four paced chunks took %s, want at least 25ms", elapsed)
	}
}

func TestFeed_Refused(t *testing.T) {
	cfg := startDaemon(t, &fakeDaemon{refuse: "engine closed"})

	_, err := Feed(context.Background(), cfg, make([]byte, 16), slog.Default())
	if err == nil || !strings.Contains(err.Error(), "engine closed") {
		t.Errorf("Feed() error = %v, want the daemon's refusal", err)
	}
}

func TestFeed_Cancelled(t *testing.T) {
	daemon := &fakeDaemon{id: uuid.New()}
	cfg := startDaemon(t, daemon)
	cfg.Realtime = true
	cfg.Chunk = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := Feed(ctx, cfg, make([]byte, 8000*2*3), slog.Default()); err == nil {
		t.Error("expected Feed to stop when the context ends")
	}
}

func TestLoadPCM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "speech.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}

	// 100 stereo frames at 16 kHz
	pcm := make([]byte, 100*4)
	for i := 0; i < len(pcm); i += 2 {
		pcm[i+1] = 0x10
	}
	if err := wav.WriteWAV16(f, 16000, 2, pcm); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := LoadPCM(path, 16000, 1)
	if err != nil {
		t.Fatalf("LoadPCM() error = %v", err)
	}
	if len(got) != 200 {
		t.Errorf("LoadPCM() = %d bytes, want 200", len(got))
	}

	if _, err := LoadPCM(filepath.Join(t.TempDir(), "speech.flac"), 16000, 1); err == nil {
		t.Error("expected an error for a missing file")
	}
}
