package tcp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"sync"

	"github.com/dmitrijs2005/libcirc/internal/common"
	"github.com/dmitrijs2005/libcirc/internal/logging"
	"github.com/dmitrijs2005/libcirc/internal/protocol"
	"github.com/dmitrijs2005/libcirc/internal/server/models"
)

// outboundBuffer is the per-connection write queue length. Responses and
// broadcast events share it; the write loop drains it in arrival order, so
// per-request response ordering is preserved.
const outboundBuffer = 32

// handler owns one client connection. The only handler-local mutable state
// is the current session; all shared state is reached through the injected
// services.
type handler struct {
	id     string
	conn   net.Conn
	srv    *Server
	logger logging.Logger
	out    chan []byte

	mu           sync.Mutex
	sessionID    string
	sessionToken string
}

func newHandler(id string, conn net.Conn, srv *Server) *handler {
	return &handler{
		id:     id,
		conn:   conn,
		srv:    srv,
		logger: srv.logger.With("conn", id, "remote", conn.RemoteAddr().String()),
		out:    make(chan []byte, outboundBuffer),
	}
}

func (h *handler) setSession(id, token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessionID = id
	h.sessionToken = token
}

func (h *handler) currentSessionID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessionID
}

// run reads requests until the peer goes away. A malformed line gets a
// failure response and the loop continues; only a read error or EOF ends the
// connection. Dropping the socket counts as logout.
func (h *handler) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer h.conn.Close()

	events := h.srv.deps.Broadcast.Subscribe(h.id)
	defer h.srv.deps.Broadcast.Unsubscribe(h.id)

	var writers sync.WaitGroup
	writers.Add(2)
	go func() {
		defer writers.Done()
		h.writeLoop(ctx)
	}()
	go func() {
		defer writers.Done()
		h.eventLoop(ctx, events)
	}()

	h.logger.Debug(ctx, "connection opened")

	scanner := bufio.NewScanner(h.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), protocol.MaxLineBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		resp := h.handleLine(ctx, line)
		h.enqueue(ctx, resp)
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		h.logger.Debug(ctx, "connection read ended", "error", err.Error())
	}

	// implicit logout: the identity must not stay online behind a dead socket
	if sid := h.currentSessionID(); sid != "" {
		h.srv.deps.Registry.Terminate(context.WithoutCancel(ctx), sid)
	}

	cancel()
	writers.Wait()
	h.logger.Debug(ctx, "connection closed")
}

// handleLine processes one request and always produces exactly one response.
func (h *handler) handleLine(ctx context.Context, line []byte) protocol.Response {
	req, err := protocol.DecodeRequest(line)
	if err != nil {
		return protocol.Response{Success: false, Message: "invalid request format"}
	}

	act, ok := h.srv.actions[req.Action]
	if !ok {
		return protocol.Response{Success: false, Message: "unknown action: " + req.Action}
	}

	// resolve the caller before the authorization check; any request with a
	// live session refreshes its idle timer
	var caller *models.Identity
	if req.SessionID != "" {
		if session, err := h.srv.deps.Registry.Resolve(req.SessionID); err == nil {
			h.srv.deps.Registry.Touch(session.ID)
			caller, _ = h.srv.deps.Identity.GetByID(ctx, session.IdentityID)
		}
	}

	switch act.class {
	case authPublic:
	case authUser:
		if caller == nil {
			return protocol.Response{Success: false, Message: "please log in first"}
		}
	case authAdmin:
		if caller == nil {
			return protocol.Response{Success: false, Message: "please log in first"}
		}
		if !caller.IsAdmin() {
			return protocol.Response{Success: false, Message: "admin privileges required"}
		}
	}

	data, message, err := act.fn(ctx, h, caller, req.Data)
	if err != nil {
		return protocol.Response{Success: false, Message: h.failureMessage(ctx, req.Action, err)}
	}
	return protocol.Response{Success: true, Message: message, Data: data}
}

// failureMessage converts an error into the user-visible message. Expected
// rejections pass their text through; anything else is a fault that gets
// logged and hidden behind a generic message.
func (h *handler) failureMessage(ctx context.Context, action string, err error) string {
	switch {
	case errors.Is(err, common.ErrValidation),
		errors.Is(err, common.ErrNotFound),
		errors.Is(err, common.ErrAuthentication),
		errors.Is(err, common.ErrAuthorization),
		errors.Is(err, common.ErrConflict):
		return err.Error()
	default:
		h.logger.Error(ctx, "action failed", "action", action, "error", err.Error())
		return common.ErrInternal.Error()
	}
}

func (h *handler) enqueue(ctx context.Context, resp protocol.Response) {
	encoded, err := protocol.EncodeLine(resp)
	if err != nil {
		h.logger.Error(ctx, "response encode failed", "error", err.Error())
		encoded, _ = protocol.EncodeLine(protocol.Response{Success: false, Message: common.ErrInternal.Error()})
	}
	select {
	case h.out <- encoded:
	case <-ctx.Done():
	}
}

// writeLoop is the single writer on the connection; everything that goes to
// the client funnels through h.out.
func (h *handler) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-h.out:
			if _, err := h.conn.Write(b); err != nil {
				h.logger.Debug(ctx, "write failed", "error", err.Error())
				return
			}
		}
	}
}

// eventLoop forwards broadcast events to the client. Encoding failures and
// full buffers drop the event; broadcast delivery is best-effort by design.
func (h *handler) eventLoop(ctx context.Context, events <-chan protocol.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if ev.Event == protocol.EventSessionTerminated {
				// if it is our session that died (displaced or idle-evicted),
				// forget it so we do not terminate it again on disconnect
				if payload, ok := ev.Data.(map[string]string); ok {
					if payload["sessionId"] == h.currentSessionID() {
						h.setSession("", "")
					}
				}
			}
			encoded, err := protocol.EncodeLine(ev)
			if err != nil {
				continue
			}
			select {
			case h.out <- encoded:
			case <-ctx.Done():
				return
			default:
				// slow client: skip the event rather than stall the handler
			}
		}
	}
}
