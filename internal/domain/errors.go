package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrMalformedDocument = errors.New("malformed document")
	ErrIndexUnavailable  = errors.New("vector index unavailable")
	ErrTemporary         = errors.New("temporary failure")
	ErrNotFound          = errors.New("not found")
)

// WrapError tags err with a sentinel kind and the failing operation so that
// callers can branch with errors.Is on the kind.
func WrapError(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	if kind == nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
