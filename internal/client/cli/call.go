package cli

import (
	"context"
	"time"

	"github.com/dmitrijs2005/libcirc/internal/protocol"
)

// call sends one request with the configured timeout and prints the server
// message. It returns the response only on success; failures print and
// return nil so command handlers can simply bail out.
func (a *App) call(ctx context.Context, action string, payload any) *protocol.Response {
	timeout := a.config.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := a.api.Do(ctx, action, payload)
	if err != nil {
		printlnFn("error:", err.Error())
		return nil
	}
	if !resp.Success {
		printlnFn("server:", resp.Message)
		return nil
	}
	if resp.Message != "" {
		printlnFn(resp.Message)
	}
	return resp
}
