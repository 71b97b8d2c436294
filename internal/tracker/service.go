package tracker

import (
	"context"
	"fmt"
	"time"
)

// Run samples the focused window every poll interval until ctx is cancelled
// or Shutdown is called. Flush failures are logged and never stop the loop.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return fmt.Errorf("tracker is already running")
	}
	e.started = true
	e.mu.Unlock()
	defer close(e.done)

	e.logger.Info().
		Dur("poll_interval", e.config.PollInterval).
		Dur("flush_interval", e.config.FlushInterval).
		Str("probe", e.probe.Name()).
		Msg("Starting tracker")

	ticker := time.NewTicker(e.config.PollInterval)
	defer ticker.Stop()

	e.sampleAndTick(ctx)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("Tracker stopped by context")
			return ctx.Err()

		case <-e.stopChan:
			e.logger.Info().Msg("Tracker stopped")
			return nil

		case <-ticker.C:
			e.sampleAndTick(ctx)
		}
	}
}

func (e *Engine) sampleAndTick(ctx context.Context) {
	if e.Status().State == Paused {
		return
	}

	title := e.sample(ctx)
	if err := e.Tick(title, e.clock.Now()); err != nil {
		// already logged by save; retried at the next boundary
		e.logger.Debug().Err(err).Msg("Tick flush failed")
	}
}

// Stop ends the sampling loop without flushing.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopChan) })
}

// IsRunning reports whether Run is active.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return false
	}
	select {
	case <-e.done:
		return false
	default:
		return true
	}
}

// Shutdown stops the loop, closes the open session and writes a final flush.
// Calling it more than once is safe; later calls only flush again.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.Stop()

	e.mu.Lock()
	started := e.started
	e.mu.Unlock()

	if started {
		select {
		case <-e.done:
		case <-ctx.Done():
			e.logger.Warn().Msg("Timed out waiting for tracker loop")
		}
	}

	if err := e.Pause(); err != nil {
		return err
	}
	if err := e.persist(); err != nil {
		return err
	}

	e.logger.Info().Str("date", e.Today()).Msg("Tracker shut down")
	return nil
}
