package handler

import (
	"log"
	"sync"
	"time"

	"brewhaus/backend/internal/config"

	"github.com/gorilla/websocket"
)

// wsSession is one side of a socket: a widget or console session that
// consumes browser commands and is torn down when the socket closes.
type wsSession interface {
	HandleCommand(raw []byte)
	Teardown()
}

// wsClient owns one WebSocket connection and its read/write pumps. State
// snapshots are full replacements, so when the browser falls behind it is
// safe to drop a snapshot: the next one carries everything.
type wsClient struct {
	conn *websocket.Conn
	sess wsSession

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newWSClient(conn *websocket.Conn, sess wsSession) *wsClient {
	return &wsClient{
		conn: conn,
		sess: sess,
		send: make(chan []byte, config.SendBufferSize),
	}
}

// Run starts both pumps.
func (c *wsClient) Run() {
	go c.writePump()
	go c.readPump()
}

// push queues a snapshot for the browser, dropping it when the buffer is
// full.
func (c *wsClient) push(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *wsClient) closeSend() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
}

func (c *wsClient) readPump() {
	defer func() {
		c.sess.Teardown()
		c.closeSend()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error reading message: %v", err)
			}
			break
		}
		c.sess.HandleCommand(raw)
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
