package storage

import "errors"

var (
	ErrNotFound       = errors.New("storage: not found")
	ErrInvalidHandle  = errors.New("storage: invalid handle")
	ErrHandleMismatch = errors.New("storage: handle mismatch")
	ErrImmutable      = errors.New("storage: immutable object mismatch")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
