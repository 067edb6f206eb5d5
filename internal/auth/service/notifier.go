package service

import (
	"context"
	"log/slog"
)

// Notifier delivers account-lifecycle messages (confirmation, unlock,
// password reset). Delivery is fire-and-forget from the caller's point of
// view; a failed send must never fail the operation that triggered it.
type Notifier interface {
	ConfirmationInstructions(ctx context.Context, email, token string)
	UnlockInstructions(ctx context.Context, email, token string)
	ResetInstructions(ctx context.Context, email, token string)
}

// LogNotifier writes notifications to the structured log instead of
// sending mail. Useful for development and as the default sink when no
// mail transport is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) ConfirmationInstructions(ctx context.Context, email, token string) {
	n.Logger.InfoContext(ctx, "confirmation instructions issued",
		slog.String("email", email),
		slog.String("token", token),
	)
}

func (n *LogNotifier) UnlockInstructions(ctx context.Context, email, token string) {
	n.Logger.InfoContext(ctx, "unlock instructions issued",
		slog.String("email", email),
		slog.String("token", token),
	)
}

func (n *LogNotifier) ResetInstructions(ctx context.Context, email, token string) {
	n.Logger.InfoContext(ctx, "reset instructions issued",
		slog.String("email", email),
		slog.String("token", token),
	)
}
