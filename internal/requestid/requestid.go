// Package requestid carries a per-request correlation ID through
// context so log lines from the API and the sweeps it triggers can be
// joined.
package requestid

import (
	"context"

	"github.com/google/uuid"
)

// Header is the wire name for the correlation ID.
const Header = "X-Request-ID"

type ctxKey struct{}

func New() string {
	return uuid.NewString()
}

// Into attaches the ID to ctx for downstream log enrichment.
func Into(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// From returns the ID attached to ctx, or "" when there is none.
func From(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
