package realtime

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jrsteele09/go-bingo-admin/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 << 10
)

// Conn is one live namespace connection. It is safe for concurrent use.
type Conn struct {
	namespace string
	ws        *websocket.Conn
	connected atomic.Bool
	done      chan struct{}
	closeOnce sync.Once

	writeMu sync.Mutex

	mu       sync.RWMutex
	handlers map[string][]*handlerEntry
}

type handlerEntry struct {
	fn Handler
}

func newConn(namespace string, ws *websocket.Conn) *Conn {
	c := &Conn{
		namespace: namespace,
		ws:        ws,
		done:      make(chan struct{}),
		handlers:  make(map[string][]*handlerEntry),
	}
	c.connected.Store(true)
	return c
}

// start runs the pumps. Handlers registered before start see every frame.
func (c *Conn) start() {
	c.dispatch(Envelope{Event: EventConnect, Status: "connected"})
	go c.readPump()
	go c.pingPump()
}

func (c *Conn) register(event string, h Handler) *handlerEntry {
	entry := &handlerEntry{fn: h}
	c.mu.Lock()
	c.handlers[event] = append(c.handlers[event], entry)
	c.mu.Unlock()
	return entry
}

func (c *Conn) Namespace() string {
	return c.namespace
}

func (c *Conn) IsConnected() bool {
	return c.connected.Load()
}

// Done is closed once the connection is gone
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// On registers h for event. Registering for EventConnect on a live connection
// invokes h straight away.
func (c *Conn) On(event string, h Handler) (off func()) {
	entry := c.register(event, h)

	if event == EventConnect && c.IsConnected() {
		h(Envelope{Event: EventConnect, Status: "connected"})
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			list := c.handlers[event]
			for i, existing := range list {
				if existing == entry {
					c.handlers[event] = append(list[:i], list[i+1:]...)
					return
				}
			}
		})
	}
}

// Off removes every handler registered for event
func (c *Conn) Off(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, event)
}

// Emit sends an event to the server
func (c *Conn) Emit(event string, payload any) error {
	if !c.IsConnected() {
		return errors.Wrapf(errors.ErrNotConnected, "[Conn Emit] %s", c.namespace)
	}

	envelope := Envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrapf(err, "[Conn Emit] failed to encode payload")
		}
		envelope.Payload = data
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteJSON(envelope); err != nil {
		return errors.Wrapf(err, "[Conn Emit] failed to write %s", event)
	}
	return nil
}

// Close disconnects. Handlers receive EventDisconnect once the read loop exits.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) dispatch(envelope Envelope) {
	c.mu.RLock()
	entries := make([]*handlerEntry, len(c.handlers[envelope.Event]))
	copy(entries, c.handlers[envelope.Event])
	c.mu.RUnlock()

	for _, entry := range entries {
		entry.fn(envelope)
	}
}

func (c *Conn) readPump() {
	var readErr error
	defer func() {
		c.connected.Store(false)
		_ = c.ws.Close()
		close(c.done)

		disconnect := Envelope{Event: EventDisconnect, Status: "disconnected"}
		if readErr != nil {
			disconnect.Message = readErr.Error()
		}
		c.dispatch(disconnect)
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Err(err).Str("namespace", c.namespace).Msg("socket read error")
			}
			readErr = err
			return
		}

		var envelope Envelope
		if err := json.Unmarshal(message, &envelope); err != nil {
			log.Err(err).Str("namespace", c.namespace).Msg("failed to decode socket frame")
			continue
		}
		if envelope.Event == "" {
			continue
		}
		c.dispatch(envelope)
	}
}

func (c *Conn) pingPump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.ws.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
