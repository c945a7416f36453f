package playback

import (
	"fmt"
	"log"
	"time"
)

// startLocked begins a session on the active entry
func (c *Controller) startLocked() error {
	if c.queue.Len() == 0 {
		return ErrEmptyQueue
	}
	if c.queue.SessionDurationMinutes() <= 0 {
		return ErrNoDuration
	}
	if c.queue.State().OffsetExceedsLength() {
		return ErrOffsetExceedsLength
	}

	entry, _ := c.queue.Active()
	offset := c.queue.OffsetMinutes()
	playID, err := c.player.Play(entry.SourceURL, time.Duration(offset)*time.Minute)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPlayback, err)
	}

	// the session is timed from the moment the player accepted the video
	c.sessionOffset = offset
	c.playID = playID
	c.queue.SetPlaying(true)
	c.queue.SetSessionStartedAt(c.clock.Now())
	c.armLocked(time.Duration(c.queue.SessionDurationMinutes()) * time.Minute)

	log.Printf("Timer: started %s at minute %d for %d minutes",
		entry.ID, c.sessionOffset, c.queue.SessionDurationMinutes())
	return nil
}

// stopLocked ends a session early. The offset advances by the elapsed
// minutes, rounded up after adding one second.
func (c *Controller) stopLocked() {
	c.cancelDeadlineLocked()

	elapsed := elapsedMinutes(c.queue.SessionStartedAt(), c.clock.Now())
	c.queue.SetOffset(c.sessionOffset + elapsed)
	c.queue.SetPlaying(false)
	c.pausePlayerLocked()

	log.Printf("Timer: stopped after %d minutes, offset now %d", elapsed, c.queue.OffsetMinutes())
}

// finishSessionLocked runs when the deadline fires or the video ends first.
// The order matters: the deadline is dropped, the offset reset, then the
// queue advances and a new session starts on the next entry if there is one.
func (c *Controller) finishSessionLocked() {
	c.cancelDeadlineLocked()
	c.queue.SetOffset(0)

	if !c.queue.Advance() {
		c.queue.SetPlaying(false)
		c.pausePlayerLocked()
		log.Printf("Timer: session finished on last entry")
		return
	}

	if err := c.startLocked(); err != nil {
		log.Printf("Timer: failed to start next entry: %v", err)
		c.queue.SetPlaying(false)
		c.pausePlayerLocked()
	}
}

// armLocked schedules the deadline, replacing any outstanding one
func (c *Controller) armLocked(d time.Duration) {
	c.cancelDeadlineLocked()

	c.generation++
	gen := c.generation
	c.deadline = c.clock.AfterFunc(d, func() {
		c.onDeadline(gen)
	})
}

func (c *Controller) cancelDeadlineLocked() {
	if c.deadline != nil {
		c.deadline.Stop()
		c.deadline = nil
	}
}

func (c *Controller) onDeadline(gen uint64) {
	c.update(func() error {
		if c.deadline == nil || gen != c.generation {
			return errUnchanged
		}
		c.finishSessionLocked()
		return nil
	})
}

func (c *Controller) pausePlayerLocked() {
	if err := c.player.Pause(); err != nil {
		log.Printf("Timer: failed to pause player: %v", err)
	}
}

// elapsedMinutes is ceil((now - start + 1s) / 1m)
func elapsedMinutes(start, now time.Time) int {
	d := now.Sub(start)
	if d < 0 {
		d = -d
	}
	d += time.Second
	return int((d + time.Minute - 1) / time.Minute)
}
