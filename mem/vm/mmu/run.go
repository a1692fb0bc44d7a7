package mmu

import (
	"context"
	"time"

	"github.com/sarchlab/flexmmu/mem/vm/residency"
)

// Run ticks the MMU until ctx is done. When there is nothing to do, it waits
// for a message, a request, or the poll interval. Requests submitted through
// Do run between ticks.
func (c *Comp) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-c.requests:
			fn()
			continue
		default:
		}

		if c.Tick() {
			continue
		}

		timer := time.NewTimer(c.pollInterval)

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case fn := <-c.requests:
			fn()
		case <-c.wake:
		case <-timer.C:
		}

		timer.Stop()
	}
}

// Do runs fn on the goroutine that runs the MMU and waits for it to return.
// The context can only cancel a request that has not started.
func (c *Comp) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})

	select {
	case c.requests <- func() {
		defer close(done)
		fn()
	}:
	case <-ctx.Done():
		return ctx.Err()
	}

	<-done

	return nil
}

// TickUntil ticks the MMU until cond holds. It blocks for as long as the
// accelerator does not answer.
func (c *Comp) TickUntil(cond func() bool) {
	for !cond() {
		if c.Tick() {
			continue
		}

		c.idle()
	}
}

func (c *Comp) idle() {
	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()

	select {
	case <-c.wake:
	case <-timer.C:
	}
}

// Snapshot copies the residency state from the MMU goroutine.
func (c *Comp) Snapshot(ctx context.Context) (residency.Snapshot, error) {
	var snap residency.Snapshot

	err := c.Do(ctx, func() {
		snap = c.state.Snapshot()
	})

	return snap, err
}
