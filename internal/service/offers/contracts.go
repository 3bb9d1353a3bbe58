package offers

import (
	"context"

	"delivery-dispatch/internal/ports/dispatchtx"
)

// txRunner abstracts running a function within a dispatch transaction.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx dispatchtx.Repository) error) error
}
