// Package logging defines the structured logger passed into services and
// handlers. The variadic args are key/value pairs:
//
//	log.Info(ctx, "invoice stored", "invoice_id", id, "user_id", userID)
package logging

import "context"

type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	// Warn is for recoverable conditions, e.g. a failed retry pass.
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always carries the given pairs.
	With(args ...any) Logger
}
