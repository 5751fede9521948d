package middleware

import (
	"context"
)

// SelfValidating messages check their own fields before dispatch.
type SelfValidating interface {
	Validate() error
}

func validate(_ context.Context, message any) error {
	if v, ok := message.(SelfValidating); ok {
		return v.Validate()
	}
	return nil
}

func Validation() CommandMiddleware {
	return guardCommands(validate)
}

func QueryValidation() QueryMiddleware {
	return guardQueries(validate)
}
