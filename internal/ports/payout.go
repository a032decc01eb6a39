package ports

import (
	"context"

	"cryptocrew/internal/domain"
)

// PayoutSink receives the settlement of a finished match. The engine calls
// SubmitPayout exactly once per match and never retries; implementations must treat
// the settlement's GameID as an idempotency key.
type PayoutSink interface {
	SubmitPayout(ctx context.Context, settlement domain.Settlement) error
}

// PayoutSinkFunc adapts a function to PayoutSink.
type PayoutSinkFunc func(ctx context.Context, settlement domain.Settlement) error

func (f PayoutSinkFunc) SubmitPayout(ctx context.Context, settlement domain.Settlement) error {
	return f(ctx, settlement)
}
