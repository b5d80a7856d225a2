package log

import "context"

// WithAttempt tags every event logged through ctx with the attempt ID.
func WithAttempt(ctx context.Context, attempt string) context.Context {
	return with(ctx, "attempt", attempt)
}

// WithMessage tags every event logged through ctx with the message ID.
func WithMessage(ctx context.Context, messageID string) context.Context {
	return with(ctx, "message_id", messageID)
}

// WithAddress tags every event logged through ctx with a recipient address.
func WithAddress(ctx context.Context, address string) context.Context {
	return with(ctx, "address", address)
}

func with(ctx context.Context, key, value string) context.Context {
	l := From(ctx).With().Str(key, value).Logger()
	return l.WithContext(ctx)
}
