package broker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// wireFrame is the single envelope shape every publish is wrapped in
// over the wire; QoS travels alongside the payload so the receiving end
// can apply the same at-least-once/fire-and-forget distinction locally
// (§4.4).
type wireFrame struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
	QoS     QoS             `json:"qos"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	readLimitBytes = ReceiveBufferBytes
)

// WebSocketChannel is the real-transport Channel between one cloud node
// and one edge agent connection, standing in for the broker session a
// production deployment would instead hold against an MQTT cluster
// (§4.4, DESIGN.md "broker transport substitution"). Framing is a flat
// {topic, payload, qos} JSON object per WebSocket text message.
type WebSocketChannel struct {
	conn   *websocket.Conn
	logger *zap.Logger

	sendCh chan wireFrame

	mu   sync.RWMutex
	subs []*subscription

	closeOnce sync.Once
	closed    chan struct{}
}

// NewWebSocketChannel wraps an already-upgraded/dialed connection and
// starts its read and write pumps.
func NewWebSocketChannel(conn *websocket.Conn, logger *zap.Logger) *WebSocketChannel {
	c := &WebSocketChannel{
		conn:   conn,
		logger: logger,
		sendCh: make(chan wireFrame, 256),
		closed: make(chan struct{}),
	}
	go c.writePump()
	go c.readPump()
	return c
}

func (c *WebSocketChannel) Publish(ctx context.Context, topic string, payload []byte, qos QoS) error {
	select {
	case c.sendCh <- wireFrame{Topic: topic, Payload: payload, QoS: qos}:
		return nil
	case <-c.closed:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *WebSocketChannel) Subscribe(ctx context.Context, topicFilter string, qos QoS) (<-chan Message, error) {
	ch := make(chan Message, 256)
	c.mu.Lock()
	c.subs = append(c.subs, &subscription{filter: topicFilter, ch: ch})
	c.mu.Unlock()
	return ch, nil
}

func (c *WebSocketChannel) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
		c.mu.Lock()
		for _, s := range c.subs {
			close(s.ch)
		}
		c.subs = nil
		c.mu.Unlock()
	})
	return nil
}

func (c *WebSocketChannel) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-c.sendCh:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(frame); err != nil {
				c.logger.Warn("broker websocket write failed, closing", zap.Error(err))
				c.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *WebSocketChannel) readPump() {
	defer c.Close()

	c.conn.SetReadLimit(readLimitBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var frame wireFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("broker websocket read error", zap.Error(err))
			}
			return
		}
		c.dispatch(frame)
	}
}

func (c *WebSocketChannel) dispatch(frame wireFrame) {
	msg := Message{Topic: frame.Topic, Payload: frame.Payload, QoS: frame.QoS}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.subs {
		if !matchFilter(s.filter, frame.Topic) {
			continue
		}
		select {
		case s.ch <- msg:
		default:
			c.logger.Warn("broker subscriber buffer full, dropping message", zap.String("topic", frame.Topic))
		}
	}
}
