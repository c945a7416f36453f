// Package playback owns the queue and the session timer.
//
// The Controller is the only place the queue is mutated. Every command,
// deadline callback and player notification runs under one mutex, so
// transitions never interleave; after each change the queue is written
// through to the persister and listeners are told to re-render.
package playback

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/csams/video-timer/internal/models"
)

var (
	ErrEmptyQueue          = errors.New("queue is empty")
	ErrNoDuration          = errors.New("session duration must be at least one minute")
	ErrOffsetExceedsLength = errors.New("start offset exceeds video length")
	ErrPlaying             = errors.New("not allowed while playing")
	ErrPlayback            = errors.New("player failed to start")

	// internal: the transition was a no-op, skip persistence and notification
	errUnchanged = errors.New("unchanged")
)

// Player is the playback surface driven by the timer. Play returns an id
// for the load it started; end notifications carry it back to VideoEnded.
type Player interface {
	Play(url string, start time.Duration) (uint64, error)
	Pause() error
}

// Resolver turns raw input into queue entries
type Resolver interface {
	Resolve(ctx context.Context, raw string) []models.QueueEntry
}

// Persister stores a snapshot after every change. Save must not fail loudly.
type Persister interface {
	Save(snap *models.Snapshot)
}

// Option configures a Controller
type Option func(*Controller)

// WithPlayer sets the playback surface
func WithPlayer(p Player) Option {
	return func(c *Controller) {
		c.player = p
	}
}

// WithResolver sets the entry resolver used by Load
func WithResolver(r Resolver) Option {
	return func(c *Controller) {
		c.resolver = r
	}
}

// WithPersister sets where snapshots are written
func WithPersister(p Persister) Option {
	return func(c *Controller) {
		c.persister = p
	}
}

// WithClock replaces the wall clock
func WithClock(clock Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// Controller serializes all queue and timer transitions
type Controller struct {
	mu        sync.Mutex
	queue     *models.Queue
	player    Player
	resolver  Resolver
	persister Persister
	clock     Clock
	listeners []func(models.QueueState)

	// Timer state: at most one deadline is outstanding. generation
	// identifies it so a callback that lost the race to Stop is ignored.
	deadline      Stopper
	generation    uint64
	sessionOffset int
	playID        uint64
}

// New creates a controller around queue. The queue is forced idle: no
// deadline survives a restart.
func New(queue *models.Queue, opts ...Option) *Controller {
	c := &Controller{
		queue: queue,
		clock: RealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.player == nil {
		c.player = nopPlayer{}
	}
	c.queue.SetPlaying(false)
	return c
}

// Subscribe registers fn to be called with the new state after every change.
// fn runs outside the controller lock and may call back into the controller.
func (c *Controller) Subscribe(fn func(models.QueueState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// State returns a copy of the current queue state
func (c *Controller) State() models.QueueState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.State()
}

// Running reports whether a deadline is outstanding
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deadline != nil
}

// Remaining returns the time left in the current session
func (c *Controller) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.deadline == nil {
		return 0
	}
	return c.queue.State().Remaining(c.clock.Now())
}

// Load resolves raw and replaces the queue with the result. Resolution runs
// without holding the lock; it never fails, so the only error is ErrPlaying.
func (c *Controller) Load(ctx context.Context, raw string) (int, error) {
	if c.Running() {
		return 0, ErrPlaying
	}

	var entries []models.QueueEntry
	if c.resolver != nil {
		entries = c.resolver.Resolve(ctx, raw)
	}

	var loaded int
	err := c.update(func() error {
		if c.deadline != nil {
			return ErrPlaying
		}
		c.queue.ReplaceAll(entries)
		loaded = c.queue.Len()
		return nil
	})
	return loaded, err
}

// ClearQueue empties the queue and returns the removed URLs comma-joined,
// ready to be put back into the input form.
func (c *Controller) ClearQueue() (string, error) {
	var urls string
	err := c.update(func() error {
		if c.deadline != nil {
			return ErrPlaying
		}
		urls = c.queue.URLs()
		c.queue.Clear()
		return nil
	})
	return urls, err
}

// SelectEntry makes entry i active, clamped into range
func (c *Controller) SelectEntry(i int) error {
	return c.update(func() error {
		if c.deadline != nil {
			return ErrPlaying
		}
		if c.queue.ActiveIndex() == i {
			return errUnchanged
		}
		c.queue.SetActiveIndex(i)
		return nil
	})
}

// RemoveEntry deletes entry i
func (c *Controller) RemoveEntry(i int) error {
	return c.update(func() error {
		if c.deadline != nil {
			return ErrPlaying
		}
		if i < 0 || i >= c.queue.Len() {
			return errUnchanged
		}
		c.queue.RemoveAt(i)
		return nil
	})
}

// SetOffset sets the start offset in minutes
func (c *Controller) SetOffset(minutes int) error {
	return c.update(func() error {
		if c.deadline != nil {
			return ErrPlaying
		}
		c.queue.SetOffset(minutes)
		return nil
	})
}

// SetSessionDuration sets the session length in minutes
func (c *Controller) SetSessionDuration(minutes int) error {
	return c.update(func() error {
		if c.deadline != nil {
			return ErrPlaying
		}
		c.queue.SetSessionDuration(minutes)
		return nil
	})
}

// TogglePlay starts a session when idle and stops it when running
func (c *Controller) TogglePlay() error {
	return c.update(func() error {
		if c.deadline != nil {
			c.stopLocked()
			return nil
		}
		return c.startLocked()
	})
}

// ObserveLength records the reported length of the video at url. If the
// running session's offset is now past the end, the session is stopped.
func (c *Controller) ObserveLength(url string, length time.Duration) {
	c.update(func() error {
		active, ok := c.queue.Active()
		if !ok || active.SourceURL != url || length <= 0 || active.Length == length {
			return errUnchanged
		}
		c.queue.SetActiveLength(length)

		if c.deadline != nil && c.queue.State().OffsetExceedsLength() {
			log.Printf("Timer: offset %d exceeds length %v of %s, stopping",
				c.queue.OffsetMinutes(), length, url)
			c.stopLocked()
		}
		return nil
	})
}

// VideoEnded handles the player reaching the end of the video at url before
// the deadline. It behaves exactly like the deadline firing. Notifications
// from an earlier load, such as a previous entry with the same link, are
// ignored.
func (c *Controller) VideoEnded(url string, playID uint64) {
	c.update(func() error {
		active, ok := c.queue.Active()
		if c.deadline == nil || !ok || active.SourceURL != url || playID != c.playID {
			return errUnchanged
		}
		log.Printf("Timer: %s ended before the deadline", url)
		c.finishSessionLocked()
		return nil
	})
}

// Close stops a running session, folding the elapsed time into the offset
func (c *Controller) Close() {
	c.update(func() error {
		if c.deadline == nil {
			return errUnchanged
		}
		c.stopLocked()
		return nil
	})
}

// update runs fn under the lock, then persists and notifies on success
func (c *Controller) update(fn func() error) error {
	c.mu.Lock()
	if err := fn(); err != nil {
		c.mu.Unlock()
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}

	if c.persister != nil {
		c.persister.Save(c.queue.Snapshot())
	}
	state := c.queue.State()
	listeners := make([]func(models.QueueState), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
	return nil
}

type nopPlayer struct{}

func (nopPlayer) Play(string, time.Duration) (uint64, error) { return 0, nil }
func (nopPlayer) Pause() error                               { return nil }
