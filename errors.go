package lego

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCollectionName = errors.New("collection name must not be empty")
	ErrTxNotWritable       = errors.New("transaction is read-only")
	ErrManagedTx           = errors.New("cannot commit or rollback a managed transaction")
	ErrInvalidOrder        = func(s string) error { return fmt.Errorf("invalid sort order %q, want asc or desc", s) }
	ErrCollectionNotFound  = func(name string) error { return fmt.Errorf("collection %s not found", name) }
	ErrCannotMarshal       = func(v any) error { return fmt.Errorf("cannot marshal value '%v' of type %T", v, v) }
	ErrCorruptRecord       = func(name string, key []byte, err error) error {
		return fmt.Errorf("collection %s: record %x: %w", name, key, err)
	}
)
