// SPDX-License-Identifier: EPL-2.0

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ik5/audbeacon"
	"github.com/ik5/audbeacon/speech"
)

// SpeechHub turns WebSocket connections into speech beacons. Binary messages
// are raw PCM in the runtime's speech format and are appended to the
// beacon's stream; an {"type":"end"} text message or closing the socket ends
// the stream.
type SpeechHub struct {
	runtime *audbeacon.Runtime
	engine  uuid.UUID
	buffer  int
	logger  *slog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]*speech.Pipe
}

// Message is a control message sent to speech clients.
type Message struct {
	Type  string    `json:"type"`
	ID    uuid.UUID `json:"id,omitempty"`
	Error string    `json:"error,omitempty"`
}

func NewSpeechHub(runtime *audbeacon.Runtime, engine uuid.UUID, buffer int, logger *slog.Logger) *SpeechHub {
	return &SpeechHub{
		runtime: runtime,
		engine:  engine,
		buffer:  buffer,
		logger:  logger,
		clients: make(map[*websocket.Conn]*speech.Pipe),
	}
}

// UpgradeHandler returns the WebSocket upgrade handler. The beacon position
// comes from the lat and lon query parameters.
func (h *SpeechHub) UpgradeHandler() fiber.Handler {
	ws := websocket.New(h.handleConnection)

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{
				"error":   "WebSocket upgrade required",
				"message": "Connect via WebSocket to stream speech",
			})
		}

		lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
		lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
		if err := errors.Join(errLat, errLon); err != nil {
			return errorJSON(c, fiber.StatusBadRequest, fmt.Errorf("lat and lon query parameters: %w", err))
		}
		if err := (position{Lat: lat, Lon: lon}).validate(); err != nil {
			return errorJSON(c, fiber.StatusBadRequest, err)
		}

		c.Locals("lat", lat)
		c.Locals("lon", lon)

		return ws(c)
	}
}

func (h *SpeechHub) handleConnection(c *websocket.Conn) {
	lat, _ := c.Locals("lat").(float64)
	lon, _ := c.Locals("lon").(float64)

	pipe := speech.NewPipe(h.buffer)
	id, err := h.runtime.CreateSpeechBeacon(h.engine, lat, lon, pipe)
	if err != nil {
		h.logger.Error("speech beacon failed", "error", err)
		_ = c.WriteJSON(Message{Type: "error", Error: err.Error()})
		return
	}

	h.mu.Lock()
	h.clients[c] = pipe
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("speech client connected",
		"remote_addr", c.RemoteAddr().String(),
		"beacon", id,
		"clients", clientCount,
	)

	defer func() {
		_ = pipe.Close()

		h.mu.Lock()
		delete(h.clients, c)
		clientCount := len(h.clients)
		h.mu.Unlock()

		h.logger.Info("speech client disconnected",
			"remote_addr", c.RemoteAddr().String(),
			"beacon", id,
			"clients", clientCount,
		)
	}()

	if err := c.WriteJSON(Message{Type: "beacon", ID: id}); err != nil {
		return
	}

	for {
		kind, msg, err := c.ReadMessage()
		if err != nil {
			return
		}

		switch kind {
		case websocket.BinaryMessage:
			if _, err := pipe.Write(msg); err != nil {
				if errors.Is(err, speech.ErrBufferFull) {
					h.logger.Warn("speech buffer full, dropping audio", "beacon", id, "bytes", len(msg))
					continue
				}
				// the beacon is gone and closed its stream
				_ = c.WriteJSON(Message{Type: "ended", ID: id})
				return
			}
		case websocket.TextMessage:
			var cmd struct {
				Type string `json:"type"`
			}
			if json.Unmarshal(msg, &cmd) == nil && cmd.Type == "end" {
				_ = pipe.Close()
				_ = c.WriteJSON(Message{Type: "ended", ID: id})
				return
			}
		}
	}
}

// ClientCount returns the number of connected speech clients
func (h *SpeechHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// Close ends every speech stream and closes its connection.
func (h *SpeechHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, pipe := range h.clients {
		_ = pipe.Close()
		_ = conn.Close()
	}
	clear(h.clients)
}
