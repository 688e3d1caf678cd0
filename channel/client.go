package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second

	sendBufferSize = 128
)

// Handlers receives decoded inbound events. Nil handlers are skipped. All
// handlers are invoked from the single read loop goroutine, so inbound event
// order is preserved.
type Handlers struct {
	OnUserID       func(userID string)
	OnChatMessage  func(msg WireMessage)
	OnCallRequest  func(signal CallSignal)
	OnCallAccepted func(signal CallSignal)
	OnCallRejected func(signal CallSignal)
	OnCallEnded    func(signal CallSignal)
	OnError        func(message string)
	OnDisconnect   func(err error)
}

// Client is the process-wide duplex channel connection. It is created once
// per authenticated session and torn down on sign-out.
type Client struct {
	conn     *websocket.Conn
	handlers Handlers

	send     chan []byte
	closed   chan struct{}
	once     sync.Once
	closeErr error
}

// Dial connects the duplex channel, presenting token as the opaque
// credential, and starts the read and write loops.
func Dial(ctx context.Context, url, token string, handlers Handlers) (*Client, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial channel %s: status %d: %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial channel %s: %w", url, err)
	}

	client := &Client{
		conn:     conn,
		handlers: handlers,
		send:     make(chan []byte, sendBufferSize),
		closed:   make(chan struct{}),
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go client.writeLoop()
	go client.readLoop()

	return client, nil
}

// Emit marshals and enqueues one outbound event. A full send buffer closes
// the connection to keep backpressure bounded.
func (c *Client) Emit(event string, payload any) error {
	frame, err := EncodeEnvelope(event, payload)
	if err != nil {
		return err
	}

	select {
	case <-c.closed:
		return ErrClosed
	case c.send <- frame:
		return nil
	default:
		c.shutdown(ErrSendBufferFull)
		return ErrSendBufferFull
	}
}

// Close tears the connection down. Safe to call more than once.
func (c *Client) Close() error {
	c.shutdown(nil)
	return c.closeErr
}

func (c *Client) shutdown(cause error) {
	c.once.Do(func() {
		close(c.closed)
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		c.closeErr = c.conn.Close()

		if cause != nil && c.handlers.OnDisconnect != nil {
			c.handlers.OnDisconnect(cause)
		}
	})
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case frame := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.shutdown(err)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.shutdown(err)
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.shutdown(err)
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown(err)
				return
			}
		}
	}
}

func (c *Client) readLoop() {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			c.shutdown(err)
			return
		}

		envelope, err := DecodeEnvelope(frame)
		if err != nil {
			log.Printf("channel: dropping undecodable frame: %v", err)
			continue
		}
		c.dispatch(envelope)
	}
}

func (c *Client) dispatch(envelope Envelope) {
	switch envelope.Event {
	case EventUserID:
		var userID string
		if err := json.Unmarshal(envelope.Data, &userID); err != nil {
			log.Printf("channel: bad userId payload: %v", err)
			return
		}
		if c.handlers.OnUserID != nil {
			c.handlers.OnUserID(userID)
		}
	case EventChatMessage:
		var msg WireMessage
		if err := json.Unmarshal(envelope.Data, &msg); err != nil {
			log.Printf("channel: bad chatMessage payload: %v", err)
			return
		}
		if c.handlers.OnChatMessage != nil {
			c.handlers.OnChatMessage(msg)
		}
	case EventCallRequest, EventCallAccepted, EventCallRejected, EventCallEnded:
		var signal CallSignal
		if len(envelope.Data) > 0 {
			if err := json.Unmarshal(envelope.Data, &signal); err != nil {
				log.Printf("channel: bad %s payload: %v", envelope.Event, err)
				return
			}
		}
		c.dispatchCall(envelope.Event, signal)
	case EventError:
		var payload ErrorPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			payload.Message = string(envelope.Data)
		}
		if c.handlers.OnError != nil {
			c.handlers.OnError(payload.Message)
		}
	default:
		log.Printf("channel: ignoring unknown event %q", envelope.Event)
	}
}

func (c *Client) dispatchCall(event string, signal CallSignal) {
	switch event {
	case EventCallRequest:
		if c.handlers.OnCallRequest != nil {
			c.handlers.OnCallRequest(signal)
		}
	case EventCallAccepted:
		if c.handlers.OnCallAccepted != nil {
			c.handlers.OnCallAccepted(signal)
		}
	case EventCallRejected:
		if c.handlers.OnCallRejected != nil {
			c.handlers.OnCallRejected(signal)
		}
	case EventCallEnded:
		if c.handlers.OnCallEnded != nil {
			c.handlers.OnCallEnded(signal)
		}
	}
}
