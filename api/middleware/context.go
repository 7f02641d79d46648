package middleware

import "context"

type userIDKey struct{}

// UserIDFromContext returns the authenticated user id, or "" on public routes
// such as webhooks and the status poll.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

// WithUserID stores the authenticated user id for downstream handlers.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}
