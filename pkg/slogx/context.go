package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

// WithAccountID enriches the contextual logger once a caller has been
// authenticated, so downstream log lines carry the account.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	l := FromContext(ctx)
	return WithContext(ctx, l.With("account_id", accountID))
}
