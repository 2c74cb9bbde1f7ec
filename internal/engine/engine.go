// Package engine enforces the cross-entity rules of the school domain:
// cascades on deletion, the classroom occupancy invariant, tenant-scoped
// uniqueness and card id allocation. Handlers authorize first, then call in;
// the engine trusts its caller on authorization and nothing else.
package engine

import (
	"errors"
	"math/rand"

	"go.uber.org/zap"

	"school-service/internal/apperr"
	"school-service/internal/store"
)

// Engine performs every mutating domain operation against an injected Store.
// Multi-step mutations run inside Store.InTransaction, so partial cascades
// roll back instead of leaving counters or references dangling.
type Engine struct {
	store store.Store
	log   *zap.Logger

	// intn draws card id suffix characters. Swapped in tests.
	intn func(n int) int
}

// New builds an Engine on top of st.
func New(st store.Store, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		store: st,
		log:   log,
		intn:  rand.Intn,
	}
}

// Store exposes the underlying store for read paths that need no engine
// logic (the auth middleware's per-request account lookup).
func (e *Engine) Store() store.Store {
	return e.store
}

// notFoundOr maps a store read failure to either the entity-specific
// not-found error or an integrity fault.
func notFoundOr(err error, msg string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(msg)
	}
	return apperr.Integrity("store read failed", err)
}
