// Package cleanup registers shutdown actions — flushing the metadata
// cache, closing a VCPKG catalog's open file handles — that must run once
// per process, in registration order, before exit (spec.md §5: a first
// halt request runs cleanup; a second skips it). It is adapted from the
// teacher's atexit.go: same mutex-guarded slice and post-close panic
// guard, renamed to this package's own shutdown-hook vocabulary.
package cleanup

import (
	"sync"
	"sync/atomic"
)

var registry struct {
	sync.Mutex
	fns    []func() error
	closed uint32
}

// Register adds fn to the list run by Run. Calling Register after Run has
// started is a bug: it would mean a cleanup action tried to schedule more
// cleanup, which the teacher's original RegisterAtExit also rejects by
// panicking rather than silently dropping the hook.
func Register(fn func() error) {
	if atomic.LoadUint32(&registry.closed) != 0 {
		panic("BUG: cleanup.Register must not be called after cleanup.Run")
	}
	registry.Lock()
	defer registry.Unlock()
	registry.fns = append(registry.fns, fn)
}

// Run executes every registered hook in registration order, stopping at
// the first error (spec.md §5's halt-flag value 1: "stop, running
// cleanup" — a hung or failing hook should not mask the ones that already
// ran, so Run reports the first failure immediately rather than
// collecting all of them).
func Run() error {
	atomic.StoreUint32(&registry.closed, 1)
	for _, fn := range registry.fns {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears the registry. Only tests should call this.
func Reset() {
	registry.Lock()
	defer registry.Unlock()
	registry.fns = nil
	atomic.StoreUint32(&registry.closed, 0)
}
