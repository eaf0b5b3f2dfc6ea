package engine

import (
	"context"
	"errors"
	"time"

	"github.com/ayusman/gaitgrip/internal/log"
)

// finiteSource is implemented by sources that can run out, like replays.
type finiteSource interface {
	Done() bool
}

// Run drives Step from a ticker until ctx is cancelled or a finite source is
// exhausted. It returns nil in both cases and the error of the first failed
// step otherwise.
//
// Loop logic:
// 1. Each tick computes dt from the wall clock, or uses TickInterval under FixedStep
// 2. An empty source skips the tick without touching classifier state
// 3. A finished finite source ends the loop
func (e *Engine) Run(ctx context.Context) error {
	interval := e.config.TickInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("engine started", "tick", interval, "fixed_step", e.config.FixedStep)
	defer log.Info("engine stopped")

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			if e.config.FixedStep {
				dt = interval.Seconds()
			}

			_, err := e.Step(dt)
			switch {
			case errors.Is(err, ErrNoSample):
				if fs, ok := e.source.(finiteSource); ok && fs.Done() {
					log.Info("pose source exhausted", "ticks", e.Latest().Seq)
					return nil
				}
			case err != nil:
				log.Error("engine step failed", "error", err)
				return err
			}
		}
	}
}
