package entity

import (
	"errors"
)

// ErrNotFound is returned by lookups for records that do not exist,
// regardless of the backing store.
var ErrNotFound = errors.New("not found")
