// Package client implements the TCP wire client: one persistent connection,
// one JSON object per line, responses matched to requests by order, events
// surfaced on a separate channel.
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/libcirc/internal/protocol"
)

const (
	dialAttempts = 3
	dialBackoff  = 2 * time.Second
	eventBuffer  = 16
)

// ErrClosed is returned by Do after the connection has gone away.
var ErrClosed = errors.New("connection closed")

// Client speaks the line protocol over a single TCP connection. Do calls are
// serialized; the server answers requests in order, so the next response line
// always belongs to the request just written.
type Client struct {
	conn      net.Conn
	responses chan *protocol.Response
	events    chan protocol.Event

	reqMu sync.Mutex // serializes request/response exchanges

	mu        sync.Mutex
	sessionID string
	closed    bool
}

// Dial connects to the server, retrying a few times so the client survives a
// server that is still starting up.
func Dial(ctx context.Context, address string) (*Client, error) {
	var conn net.Conn

	backoff := retry.WithMaxRetries(dialAttempts-1, retry.NewConstant(dialBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		d := net.Dialer{}
		c, err := d.DialContext(ctx, "tcp", address)
		if err != nil {
			return retry.RetryableError(err)
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cannot connect to %s: %w", address, err)
	}

	c := &Client{
		conn:      conn,
		responses: make(chan *protocol.Response, 1),
		events:    make(chan protocol.Event, eventBuffer),
	}
	go c.readLoop()
	return c, nil
}

// Events exposes server pushes. The channel is closed when the connection
// dies.
func (c *Client) Events() <-chan protocol.Event { return c.events }

// SetSession stores the wire token attached to every subsequent request.
func (c *Client) SetSession(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = token
}

func (c *Client) ClearSession() { c.SetSession("") }

func (c *Client) Session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return c.conn.Close()
}

// Do sends one request and waits for its response. Payload may be nil.
func (c *Client) Do(ctx context.Context, action string, payload any) (*protocol.Response, error) {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	req := protocol.Request{Action: action, SessionID: c.Session()}
	if payload != nil {
		b, err := protocol.Marshal(payload)
		if err != nil {
			return nil, err
		}
		req.Data = b
	}

	line, err := protocol.EncodeLine(req)
	if err != nil {
		return nil, err
	}
	if _, err := c.conn.Write(line); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClosed, err)
	}

	select {
	case resp, ok := <-c.responses:
		if !ok {
			return nil, ErrClosed
		}
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// DecodeData re-decodes the loosely typed response payload into out.
func DecodeData(resp *protocol.Response, out any) error {
	if resp.Data == nil {
		return nil
	}
	b, err := protocol.Marshal(resp.Data)
	if err != nil {
		return err
	}
	return protocol.Unmarshal(b, out)
}

// readLoop routes incoming lines: lines with an "event" key go to the event
// channel, everything else is the response to the request in flight. Exits
// when the connection drops and closes both channels so waiters unblock.
func (c *Client) readLoop() {
	defer close(c.responses)
	defer close(c.events)

	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), protocol.MaxLineBytes)

	for scanner.Scan() {
		line := scanner.Bytes()

		var probe struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := protocol.Unmarshal(line, &probe); err != nil {
			continue
		}

		if probe.Event != "" {
			ev := protocol.Event{Event: probe.Event}
			if len(probe.Data) > 0 {
				var data any
				if err := protocol.Unmarshal(probe.Data, &data); err == nil {
					ev.Data = data
				}
			}
			select {
			case c.events <- ev:
			default:
				// display-only stream, losing one is fine
			}
			continue
		}

		resp := &protocol.Response{}
		if err := protocol.Unmarshal(line, resp); err != nil {
			continue
		}
		c.responses <- resp
	}
}
