package httpapi

import (
	"context"
)

// serverBaseCtx is canceled when the process begins shutting down. Handlers
// join it with each request context so in-flight generation stops on either
// a client disconnect or a server drain. Background until installed.
var serverBaseCtx = context.Background()

// SetBaseContext installs the shutdown context joined into every request.
// A nil ctx resets to Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// joinContexts derives a context canceled as soon as either parent is done.
// Callers must invoke the cancel func so the watcher goroutine exits.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-a.Done():
		case <-b.Done():
		}
		cancel()
	}()
	return ctx, cancel
}
