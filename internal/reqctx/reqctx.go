// internal/reqctx/reqctx.go
package reqctx

import (
	"context"

	"github.com/google/uuid"
)

type key int

const (
	keyRequestID key = iota
	keyUserID
	keyToken
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

func GetRequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyRequestID).(string)
	return v, ok
}

func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, keyUserID, id)
}

func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(keyUserID).(uuid.UUID)
	return v, ok
}

// WithToken stores the bearer token that authenticated the request.
// It never reaches the logs.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, keyToken, token)
}

func GetToken(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyToken).(string)
	return v, ok && v != ""
}
