// Package poll is a bounded retry combinator for waiting until a write
// becomes observable on an eventually-consistent read path.
package poll

import (
	"context"
	"time"
)

type Outcome int

const (
	Ready Outcome = iota
	NotReady
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Ready:
		return "ready"
	case NotReady:
		return "not_ready"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// CheckFunc reports whether the awaited condition holds. A returned error
// aborts the loop immediately.
type CheckFunc func(ctx context.Context) (bool, error)

// Until runs check up to attempts times with a fixed interval between
// attempts. It returns Ready as soon as check reports true, Cancelled when
// the context ends first, and NotReady once the budget is exhausted. No
// further checks are issued after cancellation.
func Until(ctx context.Context, attempts int, interval time.Duration, check CheckFunc) (Outcome, error) {
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Cancelled, err
		}

		ok, err := check(ctx)
		if err != nil {
			return NotReady, err
		}
		if ok {
			return Ready, nil
		}

		if attempt == attempts {
			break
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Cancelled, ctx.Err()
		case <-timer.C:
		}
	}
	return NotReady, nil
}
