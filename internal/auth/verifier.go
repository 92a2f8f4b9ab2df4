package auth

import "context"

// Identity is what the identity provider vouches for. Downstream code only
// ever sees the UserID as an opaque ownerId/assigneeId string.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

// Verifier checks an identity-provider token and returns the identity it
// asserts.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}
