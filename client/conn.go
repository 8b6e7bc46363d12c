package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"qkd-demo/common"
	"qkd-demo/configs"
)

// DispatchFunc receives every well-formed inbound event
type DispatchFunc func(name string, payload json.RawMessage)

// Conn is the client side of the relay websocket
type Conn struct {
	ws        *websocket.Conn
	writeLock sync.Mutex
	closeOnce sync.Once
	closed    bool
}

// Dial connects to the relay websocket at url
func Dial(ctx context.Context, url string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to WebSocket server: %w", err)
	}
	return &Conn{ws: ws}, nil
}

// Emit sends a named event with payload as its single argument
func (c *Conn) Emit(name string, payload any) error {
	if c == nil || c.ws == nil {
		return ErrNotConnected
	}

	env, err := common.NewEnvelope(name, payload)
	if err != nil {
		return err
	}

	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	if c.closed {
		return ErrNotConnected
	}

	if err := c.ws.SetWriteDeadline(time.Now().Add(configs.WriteTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := c.ws.WriteJSON(env); err != nil {
		return fmt.Errorf("failed to send %s: %w", name, err)
	}
	return nil
}

// Listen reads events until the socket closes or ctx is done. Malformed frames are
// passed to onError and skipped. A normal closure returns nil.
func (c *Conn) Listen(ctx context.Context, dispatch DispatchFunc, onError func(error)) error {
	stop := context.AfterFunc(ctx, func() {
		c.Close()
	})
	defer stop()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || c.isClosed() {
				return nil
			}
			return fmt.Errorf("failed to read message: %w", err)
		}

		env, err := common.DecodeEnvelope(data)
		if err != nil {
			logger.Errorf("Error decoding message: %v", err)
			if onError != nil {
				onError(err)
			}
			continue
		}
		dispatch(env.Name, env.Payload())
	}
}

// Close sends a close frame and closes the socket. Safe to call more than once.
func (c *Conn) Close() error {
	if c == nil || c.ws == nil {
		return nil
	}
	var err error
	c.closeOnce.Do(func() {
		c.writeLock.Lock()
		c.closed = true
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.writeLock.Unlock()
		err = c.ws.Close()
	})
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}

func (c *Conn) isClosed() bool {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	return c.closed
}
