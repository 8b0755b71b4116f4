package tcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/libcirc/internal/common"
	"github.com/dmitrijs2005/libcirc/internal/protocol"
)

// startPipedHandler wires a handler to one end of an in-memory pipe and
// returns the peer side plus a line scanner over it.
func startPipedHandler(t *testing.T, srv *Server) (net.Conn, *bufio.Scanner, context.CancelFunc) {
	t.Helper()
	serverConn, clientConn := net.Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	h := newHandler("pipe-conn", serverConn, srv)
	go h.run(ctx)

	scanner := bufio.NewScanner(clientConn)
	scanner.Buffer(make([]byte, 0, 64*1024), protocol.MaxLineBytes)
	return clientConn, scanner, cancel
}

func send(t *testing.T, conn net.Conn, action string, data any, sessionID string) {
	t.Helper()
	line := request(t, action, data, sessionID)
	_, err := conn.Write(append(line, '\n'))
	require.NoError(t, err)
}

// readResponse skips pushed events until a response line arrives.
func readResponse(t *testing.T, scanner *bufio.Scanner) *protocol.Response {
	t.Helper()
	for scanner.Scan() {
		var probe struct {
			Event string `json:"event"`
		}
		require.NoError(t, protocol.Unmarshal(scanner.Bytes(), &probe))
		if probe.Event != "" {
			continue
		}
		resp := &protocol.Response{}
		require.NoError(t, protocol.Unmarshal(scanner.Bytes(), resp))
		return resp
	}
	t.Fatal("connection closed before a response arrived")
	return nil
}

func TestFailureMessage(t *testing.T) {
	srv, _ := newTestServer(t)
	h := newTestHandler(srv)
	ctx := context.Background()

	t.Run("expected rejections pass through", func(t *testing.T) {
		err := fmt.Errorf("%w: copy is not available", common.ErrValidation)
		assert.Equal(t, err.Error(), h.failureMessage(ctx, "borrowBook", err))
	})

	t.Run("faults are hidden behind the generic message", func(t *testing.T) {
		msg := h.failureMessage(ctx, "borrowBook", errors.New("dial tcp: connection refused"))
		assert.Equal(t, common.ErrInternal.Error(), msg)
	})
}

func TestHandlerRun_RequestResponse(t *testing.T) {
	srv, _ := newTestServer(t)
	conn, scanner, cancel := startPipedHandler(t, srv)
	defer cancel()
	defer conn.Close()

	send(t, conn, protocol.ActionPing, nil, "")
	resp := readResponse(t, scanner)
	assert.True(t, resp.Success)
	assert.Equal(t, "pong", resp.Message)

	// malformed input answers without dropping the connection
	_, err := conn.Write([]byte("garbage\n"))
	require.NoError(t, err)
	resp = readResponse(t, scanner)
	assert.False(t, resp.Success)
	assert.Equal(t, "invalid request format", resp.Message)

	send(t, conn, protocol.ActionPing, nil, "")
	resp = readResponse(t, scanner)
	assert.True(t, resp.Success)
}

func TestHandlerRun_BroadcastDelivery(t *testing.T) {
	srv, _ := newTestServer(t)
	conn, scanner, cancel := startPipedHandler(t, srv)
	defer cancel()
	defer conn.Close()

	// wait until the handler has subscribed
	require.Eventually(t, func() bool {
		return srv.deps.Broadcast.SubscriberCount() == 1
	}, time.Second, 10*time.Millisecond)

	srv.deps.Broadcast.Publish("book-added", map[string]string{"id": "b1"})

	require.True(t, scanner.Scan())
	var ev protocol.Event
	require.NoError(t, protocol.Unmarshal(scanner.Bytes(), &ev))
	assert.Equal(t, "book-added", ev.Event)
}

func TestHandlerRun_DisconnectLogsOut(t *testing.T) {
	srv, _ := newTestServer(t)
	conn, scanner, cancel := startPipedHandler(t, srv)
	defer cancel()

	send(t, conn, protocol.ActionRegister, map[string]string{"username": "alice", "password": "pw"}, "")
	require.True(t, readResponse(t, scanner).Success)

	send(t, conn, protocol.ActionLogin, map[string]string{"username": "alice", "password": "pw"}, "")
	require.True(t, readResponse(t, scanner).Success)
	require.Equal(t, 1, srv.deps.Registry.ActiveCount())

	// dropping the socket counts as logout
	conn.Close()
	require.Eventually(t, func() bool {
		return srv.deps.Registry.ActiveCount() == 0
	}, time.Second, 10*time.Millisecond)
}
