package providers

import (
	"context"
)

// Session keys persisted on the client.
const (
	SessionKeyAccessToken  = "accessToken"
	SessionKeyRefreshToken = "refreshToken"
	SessionKeyUserID       = "userId"
	SessionKeyCurrentPlant = "currentPlant"
)

// SessionStore is a durable string map on the client. Values are opaque; there is no expiry.
type SessionStore interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, bool, error)
	Remove(ctx context.Context, key string) error

	// Keys lists stored keys with the given prefix in lexical order
	Keys(ctx context.Context, prefix string) ([]string, error)
}
