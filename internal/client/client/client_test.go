package client

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/libcirc/internal/protocol"
)

// fakeServer accepts one connection and answers every request line with the
// scripted response, optionally pushing events first.
type fakeServer struct {
	listener net.Listener
	t        *testing.T
}

func newFakeServer(t *testing.T, handle func(req *protocol.Request, out func(v any))) *fakeServer {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			req, err := protocol.DecodeRequest(scanner.Bytes())
			if err != nil {
				continue
			}
			handle(req, func(v any) {
				line, err := protocol.EncodeLine(v)
				if err != nil {
					return
				}
				_, _ = conn.Write(line)
			})
		}
	}()

	return &fakeServer{listener: listener, t: t}
}

func (s *fakeServer) addr() string { return s.listener.Addr().String() }

func TestDo_RoundTrip(t *testing.T) {
	srv := newFakeServer(t, func(req *protocol.Request, out func(v any)) {
		out(protocol.Response{Success: true, Message: "pong"})
	})

	c, err := Dial(context.Background(), srv.addr())
	require.NoError(t, err)
	defer c.Close()

	resp, err := c.Do(context.Background(), protocol.ActionPing, nil)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "pong", resp.Message)
}

func TestDo_AttachesSessionAndPayload(t *testing.T) {
	srv := newFakeServer(t, func(req *protocol.Request, out func(v any)) {
		var payload struct {
			BookID string `json:"bookId"`
		}
		_ = protocol.Unmarshal(req.Data, &payload)
		out(protocol.Response{
			Success: true,
			Data:    map[string]string{"sessionId": req.SessionID, "bookId": payload.BookID},
		})
	})

	c, err := Dial(context.Background(), srv.addr())
	require.NoError(t, err)
	defer c.Close()

	c.SetSession("tok-123")

	resp, err := c.Do(context.Background(), protocol.ActionBorrowBook, map[string]string{"bookId": "b1"})
	require.NoError(t, err)

	var echoed map[string]string
	require.NoError(t, DecodeData(resp, &echoed))
	assert.Equal(t, "tok-123", echoed["sessionId"])
	assert.Equal(t, "b1", echoed["bookId"])
}

func TestDo_EventsDoNotStealResponses(t *testing.T) {
	srv := newFakeServer(t, func(req *protocol.Request, out func(v any)) {
		// two pushes arrive before the answer
		out(protocol.Event{Event: "book-added", Data: map[string]string{"id": "b1"}})
		out(protocol.Event{Event: "refresh"})
		out(protocol.Response{Success: true, Message: "ok"})
	})

	c, err := Dial(context.Background(), srv.addr())
	require.NoError(t, err)
	defer c.Close()

	resp, err := c.Do(context.Background(), protocol.ActionPing, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Message)

	ev := <-c.Events()
	assert.Equal(t, "book-added", ev.Event)
	ev = <-c.Events()
	assert.Equal(t, "refresh", ev.Event)
}

func TestDo_ClosedConnection(t *testing.T) {
	srv := newFakeServer(t, func(req *protocol.Request, out func(v any)) {})

	c, err := Dial(context.Background(), srv.addr())
	require.NoError(t, err)

	require.NoError(t, c.Close())

	_, err = c.Do(context.Background(), protocol.ActionPing, nil)
	require.ErrorIs(t, err, ErrClosed)
}

func TestDial_UnreachableAddress(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := Dial(ctx, "127.0.0.1:1")
	require.Error(t, err)
}

func TestEvents_ChannelClosesWithConnection(t *testing.T) {
	srv := newFakeServer(t, func(req *protocol.Request, out func(v any)) {})

	c, err := Dial(context.Background(), srv.addr())
	require.NoError(t, err)

	require.NoError(t, c.Close())

	select {
	case _, ok := <-c.Events():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("events channel did not close")
	}
}
