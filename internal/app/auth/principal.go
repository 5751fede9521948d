package auth

import (
	"context"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	ErrUnauthenticated = errors.New("auth: authentication required")
	ErrForbidden       = errors.New("auth: forbidden")
)

type Role string

const (
	RoleRenter Role = "renter"
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
)

// Principal is the caller identity asserted by the external auth provider.
type Principal struct {
	UserID string
	Roles  []Role
	Tier   string
}

func ParseRoles(raw []string) []Role {
	out := make([]Role, 0, len(raw))
	for _, r := range raw {
		role := Role(strings.ToLower(strings.TrimSpace(r)))
		if role == "" || slices.Contains(out, role) {
			continue
		}
		out = append(out, role)
	}
	return out
}

func (p Principal) Has(role Role) bool {
	return slices.Contains(p.Roles, role) || slices.Contains(p.Roles, RoleAdmin)
}

func (p Principal) Require(role Role) error {
	if p.UserID == "" {
		return ErrUnauthenticated
	}
	if !p.Has(role) {
		return errors.Wrapf(ErrForbidden, "%s role required", role)
	}
	return nil
}

type ctxKey struct{}

func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok && p.UserID != ""
}
