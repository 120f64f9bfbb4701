package auditctx

import "context"

// Actor describes who triggered a request: an admin username, or "guest"
// plus the device id for invitation flows.
type Actor struct {
	Username  string
	DeviceID  string
	IPAddress string
	UserAgent string
	RequestID string
}

type actorContextKey struct{}

// WithActor returns a derived context carrying actor for audit logging.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// FromContext extracts previously stored actor metadata.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
