package clients

import "context"

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// ClientIDKey is the context key for the caller identity used by
	// rate limiting and outbound X-Client-ID headers
	ClientIDKey contextKey = "client-id"
)

// WithClientID adds a client ID to the context
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, ClientIDKey, clientID)
}

// GetClientID retrieves the client ID from context
// Returns the client ID and true if found, empty string and false otherwise
func GetClientID(ctx context.Context) (string, bool) {
	clientID, ok := ctx.Value(ClientIDKey).(string)
	return clientID, ok && clientID != ""
}
