package pricing

import (
	"github.com/cockroachdb/errors"
)

// Kind discriminates the ways a quote request can be rejected.
type Kind string

const (
	KindInvalidDate     Kind = "InvalidDate"
	KindStartDateInPast Kind = "StartDateInPast"
	KindInvalidRange    Kind = "InvalidRange"
	KindInvalidRate     Kind = "InvalidRate"
)

// ValidationError is returned for every rejected quote request. Matching with
// errors.Is against one of the Err* sentinels compares kinds only.
type ValidationError struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "pricing: " + e.Message
	}
	return "pricing: " + e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	var other *ValidationError
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

var (
	ErrInvalidDate     = &ValidationError{Kind: KindInvalidDate, Message: "invalid date"}
	ErrStartDateInPast = &ValidationError{Kind: KindStartDateInPast, Message: "start date is in the past"}
	ErrInvalidRange    = &ValidationError{Kind: KindInvalidRange, Message: "end date must be after start date"}
	ErrInvalidRate     = &ValidationError{Kind: KindInvalidRate, Message: "invalid rate"}
)

// KindOf extracts the validation kind from err, if any.
func KindOf(err error) (Kind, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Kind, true
	}
	return "", false
}

func invalid(kind Kind, field, msg string) error {
	return &ValidationError{Kind: kind, Field: field, Message: msg}
}
