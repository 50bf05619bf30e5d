package tracker

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Kind is the machine-readable error tag the transport layer exposes.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindExists          Kind = "exists"
	KindForbidden       Kind = "forbidden"
	KindUnauthenticated Kind = "unauthenticated"
	KindInternal        Kind = "internal"
)

type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func E(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the taxonomy kind of err. Unique-constraint hits count
// as exists, so an insert losing a race on a unique column reports the
// same way as the pre-insert check. Anything else that is not a tracker
// error counts as internal, so storage failures never leak details.
func KindOf(err error) Kind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return KindExists
	}
	return KindInternal
}
