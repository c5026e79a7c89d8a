package firebase

import "context"

type identityKey struct{}

// Identity is the verified caller. Token is the raw ID token it was
// verified from.
type Identity struct {
	UID   string
	Email string
	Token string
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller stored by Authenticate.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// UserID returns the verified uid, or "" outside Authenticate.
func UserID(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return id.UID
}

func Email(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return id.Email
}

func Token(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return id.Token
}
