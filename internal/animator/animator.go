// Package animator ramps a displayed integer from zero to a target at a fixed cadence.
package animator

import (
	"context"
	"sync"
	"time"

	"github.com/spigell/resume-coach/internal/utils"
)

// DefaultTick is the reference cadence of the score reveal.
const DefaultTick = 15 * time.Millisecond

type Animator struct {
	wait func(ctx context.Context, d time.Duration) error
}

func New() *Animator {
	return &Animator{wait: utils.WaitFor}
}

// Run calls onTick with 1, 2, ..., target, one value per tick, and returns nil
// once target is reached. Cancelling ctx stops it before the next callback and
// Run returns ctx.Err(). A target below 1 produces no callbacks.
func (a *Animator) Run(ctx context.Context, target int, tick time.Duration, onTick func(int)) error {
	for v := 1; v <= target; v++ {
		if err := a.wait(ctx, tick); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		onTick(v)
	}

	return nil
}

// Animation is a running Run started with Start.
type Animation struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	err    error
}

// Start runs the animation in its own goroutine.
func (a *Animator) Start(ctx context.Context, target int, tick time.Duration, onTick func(int)) *Animation {
	ctx, cancel := context.WithCancel(ctx)
	an := &Animation{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(an.done)
		an.err = a.Run(ctx, target, tick, onTick)
	}()

	return an
}

// Stop discards the remaining ticks and waits for the loop to exit, so no
// callback fires after it returns. It must not be called from onTick.
func (an *Animation) Stop() {
	an.once.Do(an.cancel)
	<-an.done
}

// Done is closed once the animation finished or was stopped.
func (an *Animation) Done() <-chan struct{} {
	return an.done
}

// Err is the Run result. Valid after Done is closed.
func (an *Animation) Err() error {
	<-an.done
	return an.err
}
