package store

import "errors"

// ErrNotFound is returned by parked-task operations (RetryParked,
// PurgeParked) when no matching parked row exists.
var ErrNotFound = errors.New("pgtask: task not found")
