package pgtask

import (
	"github.com/pgtask-dev/pgtask/internal/store"
)

// ErrTaskNotFound is store.ErrNotFound, returned by the Store's task
// lookup and parked-task operations (GetTask, RetryParked,
// PurgeParked) when no matching task exists.
var ErrTaskNotFound = store.ErrNotFound
