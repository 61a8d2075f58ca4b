package jsonsocket

import "context"

type contextKey string

// socketKey is the value to be passed to the context's Value method to return
// the *Socket that owns the context.
const socketKey = contextKey("socket")

// FromContext returns the socket whose Context is ctx or derived from it.
// Returns nil if not available.
func FromContext(ctx context.Context) *Socket {
	s, ok := ctx.Value(socketKey).(*Socket)
	if !ok {
		return nil
	}
	return s
}
