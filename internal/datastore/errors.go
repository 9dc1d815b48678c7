package datastore

import "github.com/tphakala/codeseek/internal/errors"

var (
	// ErrNotOpen is returned by queries on a store whose Open has not succeeded.
	ErrNotOpen = errors.NewStd("database connection is not initialized")

	// ErrStoreUnavailable wraps failures to establish the store connection.
	ErrStoreUnavailable = errors.NewStd("record store unavailable")
)
