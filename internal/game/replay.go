package game

import "time"

// Replay navigation. The cursor always stays within [0, log.Len()]; a cursor
// at the tip means the live view. At most one playback timer exists per
// controller, whatever sequence of calls happens.

// StartReplay enters timed playback. A cursor already at the tip rewinds to
// the start first. Any previous playback timer is cancelled, so calling this
// twice leaves exactly one timer running.
func (c *Controller) StartReplay() {
	c.mu.Lock()
	c.stopTimerLocked()
	if c.cursor >= c.log.Len() {
		c.cursor = 0
	}
	c.mode = ModePlayingReplay
	c.selected = nil
	c.startTimerLocked()
	c.mu.Unlock()
	c.changes.Publish()
}

// Pause halts playback and keeps the cursor where it is.
func (c *Controller) Pause() {
	c.mu.Lock()
	if c.mode != ModePlayingReplay {
		c.mu.Unlock()
		return
	}
	c.stopTimerLocked()
	c.mode = ModePausedReplay
	c.mu.Unlock()
	c.changes.Publish()
}

// StepForward advances the cursor by one; a no-op at the tip.
func (c *Controller) StepForward() {
	c.mu.Lock()
	if c.cursor >= c.log.Len() {
		c.mu.Unlock()
		return
	}
	c.stopTimerLocked()
	c.cursor++
	c.applyCursorModeLocked()
	c.mu.Unlock()
	c.changes.Publish()
}

// StepBack moves the cursor back by one; a no-op at zero.
func (c *Controller) StepBack() {
	c.mu.Lock()
	if c.cursor <= 0 {
		c.mu.Unlock()
		return
	}
	c.stopTimerLocked()
	c.cursor--
	c.applyCursorModeLocked()
	c.mu.Unlock()
	c.changes.Publish()
}

// ScrubTo sets the cursor absolutely, clamped to the log bounds.
func (c *Controller) ScrubTo(index int) {
	c.mu.Lock()
	c.stopTimerLocked()
	if index < 0 {
		index = 0
	}
	if index > c.log.Len() {
		index = c.log.Len()
	}
	c.cursor = index
	c.applyCursorModeLocked()
	c.mu.Unlock()
	c.changes.Publish()
}

// ExitReplay forces the view back to the live tip.
func (c *Controller) ExitReplay() {
	c.mu.Lock()
	c.stopTimerLocked()
	c.cursor = c.log.Len()
	c.mode = ModeLive
	c.mu.Unlock()
	c.changes.Publish()
}

// applyCursorModeLocked encodes the shared transition rule: a cursor at the
// tip is the live view, anywhere else is a paused replay.
func (c *Controller) applyCursorModeLocked() {
	if c.cursor >= c.log.Len() {
		c.mode = ModeLive
	} else {
		c.mode = ModePausedReplay
		c.selected = nil
	}
}

func (c *Controller) startTimerLocked() {
	stop := make(chan struct{})
	c.timerStop = stop
	interval := c.interval
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				if !c.advance(stop) {
					return
				}
			}
		}
	}()
}

// advance moves the cursor one step on a timer tick. It reports whether the
// owning timer should keep running; a stale timer (replaced or cancelled
// under the lock) exits without touching anything.
func (c *Controller) advance(stop chan struct{}) bool {
	c.mu.Lock()
	if c.timerStop != stop || c.mode != ModePlayingReplay {
		c.mu.Unlock()
		return false
	}
	if c.cursor < c.log.Len() {
		c.cursor++
	}
	cont := true
	if c.cursor >= c.log.Len() {
		c.mode = ModeLive
		c.timerStop = nil
		cont = false
	}
	c.mu.Unlock()
	c.changes.Publish()
	return cont
}

func (c *Controller) stopTimerLocked() {
	if c.timerStop != nil {
		close(c.timerStop)
		c.timerStop = nil
	}
}
