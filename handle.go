package pgtask

import (
	"github.com/pgtask-dev/pgtask/internal/core"
)

// Handle is passed to user step code, giving it access to the same
// database the task runner persists to — useful for steps that read or
// write application tables transactionally alongside their own
// progress.
type Handle = core.Handle
