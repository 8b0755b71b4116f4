package cli

import (
	"context"

	"github.com/dmitrijs2005/libcirc/internal/protocol"
)

// watchEvents prints server pushes as they arrive. If our own session is
// terminated remotely (displaced by another login or evicted for idleness),
// the local login state is dropped as well.
func (a *App) watchEvents(ctx context.Context) {
	events := a.api.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				printlnFn("* connection to server lost")
				return
			}
			a.handleEvent(ev)
		}
	}
}

func (a *App) handleEvent(ev protocol.Event) {
	if ev.Event == protocol.EventSessionTerminated {
		if payload, ok := ev.Data.(map[string]any); ok {
			sid, _ := payload["sessionId"].(string)
			reason, _ := payload["reason"].(string)

			a.mu.Lock()
			mine := a.sessionUID != "" && sid == a.sessionUID
			a.mu.Unlock()

			if mine {
				printlnFn("* session ended:", reason)
				a.clearIdentity()
			}
		}
		return
	}

	printlnFn("* " + ev.Event)
}
