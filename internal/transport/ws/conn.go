package ws

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/blendin/internal/model"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Buffer size for outgoing messages
	sendBufferSize = 256
)

// Conn is one WebSocket client. It is the game.Sink for the player the
// connection becomes, so Send must never block the session calling it.
type Conn struct {
	conn   *websocket.Conn
	send   chan model.Event
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

func newConn(conn *websocket.Conn, logger *slog.Logger) *Conn {
	return &Conn{
		conn:   conn,
		send:   make(chan model.Event, sendBufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Send queues an event for delivery. A client too slow to drain its buffer
// is disconnected rather than silently missing events.
func (c *Conn) Send(event model.Event) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.send <- event:
	default:
		c.logger.Warn("send buffer full, dropping connection", slog.String("event", string(event.Type)))
		c.Close()
	}
}

// Close asks the write pump to shut the socket down.
// It never touches the network, so it is safe to call under a session lock.
func (c *Conn) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// readPump delivers inbound messages to handle until the connection fails
func (c *Conn) readPump(handle func(data []byte)) {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error", slog.String("error", err.Error()))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		handle(data)
	}
}

// writePump drains the send buffer to the socket and keeps the connection alive
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.conn.Close()
	}()

	for {
		select {
		case event := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
