package core

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of *store.Store a Handle needs: just enough to hand
// step code a connection pool. Declared here rather than imported from
// store so core never depends on store's concrete type, only on this
// one-method shape — which keeps Handle constructible from a test
// fake.
type DB interface {
	Pool() *pgxpool.Pool
}

// Handle is passed to user step code, giving it access to the same
// database the task runner persists to — useful for steps that read or
// write application tables transactionally alongside their own
// progress. The core never reads from or writes to anything reachable
// only through Handle; it is purely an escape hatch for step authors.
type Handle struct {
	db DB
}

// NewHandle wraps db for use by step code. Exported for use by the
// executor package, which constructs one Handle per step invocation.
func NewHandle(db DB) *Handle {
	return &Handle{db: db}
}

// Pool returns the underlying connection pool.
func (h *Handle) Pool() *pgxpool.Pool {
	return h.db.Pool()
}
