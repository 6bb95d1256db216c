package store

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

// StoreError marks an I/O or corruption failure at the storage layer. It is
// always fatal to the enclosing operation; previously committed batches stay
// intact.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsStoreError reports whether err is (or wraps) a StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

func wrapStore(op string, err error) error {
	return eris.Wrap(&StoreError{Op: op, Err: err}, "store")
}
