package middleware

import (
	"context"

	"carshare/internal/app/auth"
)

// RoleRestricted messages may only be dispatched by a principal holding the role.
type RoleRestricted interface {
	RequiredRole() auth.Role
}

func authorize(ctx context.Context, message any) error {
	restricted, ok := message.(RoleRestricted)
	if !ok {
		return nil
	}
	principal, ok := auth.FromContext(ctx)
	if !ok {
		return auth.ErrUnauthenticated
	}
	return principal.Require(restricted.RequiredRole())
}

func Authorization() CommandMiddleware {
	return guardCommands(authorize)
}

func QueryAuthorization() QueryMiddleware {
	return guardQueries(authorize)
}
