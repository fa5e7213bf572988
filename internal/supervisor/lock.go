package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

// DefaultLockTimeout bounds how long start and stop wait for another
// invocation on the same context.
const DefaultLockTimeout = 5 * time.Second

// DefaultSettle is how long a background start watches the new child before
// reporting success. A child that exits inside it is reported as a failed
// launch.
const DefaultSettle = 500 * time.Millisecond

const startupTailLines = 10

const lockRetryDelay = 50 * time.Millisecond

// acquire takes the advisory lock on the context's lock file. The returned
// function releases it and is safe to call more than once.
func (s *Supervisor) acquire(ctx context.Context) (func(), error) {
	fl := flock.New(s.c.LockFile)
	lctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	ok, err := fl.TryLockContext(lctx, lockRetryDelay)
	if !ok {
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case lctx.Err() != nil:
			return nil, fmt.Errorf("%w: %s", ErrBusy, s.c.LockFile)
		default:
			return nil, fmt.Errorf("lock %s: %w", s.c.LockFile, err)
		}
	}
	released := false
	return func() {
		if released {
			return
		}
		released = true
		_ = fl.Unlock()
	}, nil
}
