package statestore

import "errors"

var (
	ErrRecordNotFound = errors.New("statestore: record not found")
	ErrInvalidRecord  = errors.New("statestore: invalid record")
)
