package auth

import (
	"context"

	"github.com/gaogaogoo/sport-log/internal/db/models"
)

// Kind classifies the authenticated caller.
type Kind int

const (
	// KindUser is a user authenticated with their own credentials.
	KindUser Kind = iota
	// KindActionProvider is an action provider acting as itself.
	KindActionProvider
	// KindUserActionProvider is an action provider acting on behalf of a
	// user who has an enabled action event linking the two.
	KindUserActionProvider
	// KindAdmin is the instance administrator.
	KindAdmin
)

// Principal is the authenticated identity attached to a request.
type Principal struct {
	Kind       Kind
	UserID     models.UserID
	ProviderID models.ActionProviderID
}

// ActsForUser reports whether the principal operates with the rights of the
// given user. Admins act for every user.
func (p Principal) ActsForUser(id models.UserID) bool {
	switch p.Kind {
	case KindAdmin:
		return true
	case KindUser, KindUserActionProvider:
		return p.UserID == id
	default:
		return false
	}
}

type principalKey struct{}

// WithPrincipal attaches the principal to the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the request's principal, if authentication ran.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
