package net

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
)

const (
	// RelayPath is where the relay serves the websocket endpoint.
	RelayPath    = "/whiteboard/ws"
	writeTimeout = 5 * time.Second
)

// RelayURL builds the websocket URL of a relay listening on addr (host:port).
func RelayURL(addr string) string {
	return fmt.Sprintf("ws://%s%s", addr, RelayPath)
}

// WSChannel is a Channel over a websocket to a Relay. It redials with
// exponential backoff after every disconnect; the relay replays its journal
// on each connect, so a reconnecting participant catches up.
type WSChannel struct {
	url        string
	dialer     *websocket.Dialer
	maxBackoff time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	state     ConnState
	onReceive func(Message)
	onState   func(ConnState)
	started   bool
	closed    bool

	writeMu sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewWSChannel creates an idle channel to url. Register callbacks, then call
// Start. maxBackoff caps the wait between redials.
func NewWSChannel(url string, maxBackoff time.Duration) *WSChannel {
	if maxBackoff <= 0 {
		maxBackoff = 10 * time.Second
	}
	return &WSChannel{
		url:        url,
		dialer:     websocket.DefaultDialer,
		maxBackoff: maxBackoff,
		done:       make(chan struct{}),
	}
}

// Start connects in the background and returns immediately. It is a no-op
// on a started or closed channel.
func (c *WSChannel) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.closed {
		return
	}
	c.started = true
	ctx, c.cancel = context.WithCancel(ctx)
	go c.run(ctx)
}

// Dial creates a channel and starts it.
func Dial(ctx context.Context, url string, maxBackoff time.Duration) *WSChannel {
	c := NewWSChannel(url, maxBackoff)
	c.Start(ctx)
	return c
}

// OnReceive implements Channel.
func (c *WSChannel) OnReceive(fn func(Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReceive = fn
}

// OnStateChange implements Channel.
func (c *WSChannel) OnStateChange(fn func(ConnState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = fn
}

// State implements Channel.
func (c *WSChannel) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Send implements Channel.
func (c *WSChannel) Send(m Message) error {
	c.mu.Lock()
	conn, state := c.conn, c.state
	c.mu.Unlock()
	if conn == nil || state != Connected {
		return ErrDisconnected
	}
	data, err := EncodeMessage(m)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("send %s: %w", m.Type, err)
	}
	return nil
}

// Close stops redialing and closes the current connection.
func (c *WSChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn, started := c.conn, c.started
	c.mu.Unlock()

	if !started {
		return nil
	}
	c.cancel()
	if conn != nil {
		_ = conn.Close()
	}
	<-c.done
	return nil
}

func (c *WSChannel) run(ctx context.Context) {
	defer close(c.done)
	defer c.setState(Disconnected, nil)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = c.maxBackoff

	for ctx.Err() == nil {
		c.setState(Connecting, nil)
		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			wait := b.NextBackOff()
			log.Printf("[SYNC] Dial %s failed: %v (retry in %s)", c.url, err, wait)
			c.setState(Disconnected, nil)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}
		b.Reset()

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		c.mu.Unlock()

		log.Printf("[SYNC] Connected to %s", c.url)
		c.setState(Connected, conn)
		c.readLoop(conn)
		_ = conn.Close()
		c.setState(Disconnected, nil)
		log.Printf("[SYNC] Disconnected from %s", c.url)
	}
}

func (c *WSChannel) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := DecodeMessage(data)
		if err != nil {
			log.Printf("[SYNC] Dropping inbound message: %v", err)
			continue
		}
		c.mu.Lock()
		fn := c.onReceive
		c.mu.Unlock()
		if fn != nil {
			fn(msg)
		}
	}
}

func (c *WSChannel) setState(s ConnState, conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	changed := c.state != s
	c.state = s
	fn := c.onState
	c.mu.Unlock()
	if changed && fn != nil {
		fn(s)
	}
}
