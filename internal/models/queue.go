package models

import (
	"strings"
	"time"
)

// QueueEntry represents a single video in the playback queue
type QueueEntry struct {
	SourceURL string        `json:"url"`
	ID        string        `json:"id"`
	Title     string        `json:"title,omitempty"`
	Length    time.Duration `json:"length,omitempty"` // Reported by the player, zero until known
}

// DisplayName returns the title, falling back to the source URL
func (e QueueEntry) DisplayName() string {
	if e.Title != "" {
		return e.Title
	}
	return e.SourceURL
}

// QueueState is a read-only copy of the queue handed to the presentation layer
type QueueState struct {
	Entries                []QueueEntry
	ActiveIndex            int
	OffsetMinutes          int
	SessionDurationMinutes int
	IsPlaying              bool
	SessionStartedAt       time.Time
}

// Active returns the active entry, or nil if the queue is empty
func (s QueueState) Active() *QueueEntry {
	if s.ActiveIndex < 0 || s.ActiveIndex >= len(s.Entries) {
		return nil
	}
	return &s.Entries[s.ActiveIndex]
}

// KnownLengthMinutes returns the active entry's length in whole minutes
func (s QueueState) KnownLengthMinutes() (int, bool) {
	active := s.Active()
	if active == nil || active.Length <= 0 {
		return 0, false
	}
	return int(active.Length / time.Minute), true
}

// OffsetExceedsLength reports whether the offset is past the end of the active entry.
// Unknown lengths never exceed.
func (s QueueState) OffsetExceedsLength() bool {
	length, ok := s.KnownLengthMinutes()
	return ok && s.OffsetMinutes > length
}

// Remaining returns the time left in a running session at now
func (s QueueState) Remaining(now time.Time) time.Duration {
	if !s.IsPlaying {
		return 0
	}
	total := time.Duration(s.SessionDurationMinutes) * time.Minute
	return max(total-now.Sub(s.SessionStartedAt), 0)
}

// Queue holds the ordered entries and the timer-relevant fields.
// All methods are plain state transitions; callers serialize access.
type Queue struct {
	entries                []QueueEntry
	activeIndex            int
	offsetMinutes          int
	sessionDurationMinutes int
	isPlaying              bool
	sessionStartedAt       time.Time
}

// NewQueue creates an empty queue with the given session duration
func NewQueue(sessionDurationMinutes int) *Queue {
	return &Queue{
		entries:                []QueueEntry{},
		sessionDurationMinutes: clampMinutes(sessionDurationMinutes),
	}
}

// QueueFromSnapshot rebuilds a queue from persisted data. The result is never playing.
// A snapshot without a session duration gets defaultDuration.
func QueueFromSnapshot(snap *Snapshot, defaultDuration int) *Queue {
	duration := snap.SessionDurationMinutes
	if duration <= 0 {
		duration = defaultDuration
	}
	q := NewQueue(duration)
	q.ReplaceAll(snap.Entries)
	q.SetActiveIndex(snap.ActiveIndex)
	q.SetOffset(snap.OffsetMinutes)
	return q
}

// ReplaceAll sets the entries and resets the active index.
// Entries without an id are dropped.
func (q *Queue) ReplaceAll(entries []QueueEntry) {
	admitted := make([]QueueEntry, 0, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		admitted = append(admitted, e)
	}
	q.entries = admitted
	q.activeIndex = 0
}

// Clear empties the queue
func (q *Queue) Clear() {
	q.entries = []QueueEntry{}
	q.activeIndex = 0
}

// SetActiveIndex selects an entry, clamping i into range
func (q *Queue) SetActiveIndex(i int) {
	q.activeIndex = q.clampIndex(i)
}

// Advance moves to the next entry. It returns false if the active entry is the last one.
func (q *Queue) Advance() bool {
	if q.activeIndex >= len(q.entries)-1 {
		return false
	}
	q.activeIndex++
	return true
}

// RemoveAt removes entry i while keeping the active index on the same entry where possible.
// Out-of-range indices are ignored.
func (q *Queue) RemoveAt(i int) {
	if i < 0 || i >= len(q.entries) {
		return
	}
	q.entries = append(q.entries[:i:i], q.entries[i+1:]...)

	if q.activeIndex >= len(q.entries) {
		q.activeIndex = max(0, len(q.entries)-1)
	} else if i < q.activeIndex {
		q.activeIndex--
	}
}

// SetOffset sets the start offset in minutes
func (q *Queue) SetOffset(minutes int) {
	q.offsetMinutes = clampMinutes(minutes)
}

// SetSessionDuration sets how many minutes a play session lasts
func (q *Queue) SetSessionDuration(minutes int) {
	q.sessionDurationMinutes = clampMinutes(minutes)
}

// SetPlaying sets the playing flag
func (q *Queue) SetPlaying(playing bool) {
	q.isPlaying = playing
	if !playing {
		q.sessionStartedAt = time.Time{}
	}
}

// SetSessionStartedAt records when the current session began
func (q *Queue) SetSessionStartedAt(t time.Time) {
	q.sessionStartedAt = t
}

// SetActiveLength records the total length of the active entry
func (q *Queue) SetActiveLength(d time.Duration) {
	if q.activeIndex < 0 || q.activeIndex >= len(q.entries) {
		return
	}
	q.entries[q.activeIndex].Length = d
}

func (q *Queue) Len() int {
	return len(q.entries)
}

func (q *Queue) ActiveIndex() int {
	return q.activeIndex
}

func (q *Queue) OffsetMinutes() int {
	return q.offsetMinutes
}

func (q *Queue) SessionDurationMinutes() int {
	return q.sessionDurationMinutes
}

func (q *Queue) IsPlaying() bool {
	return q.isPlaying
}

func (q *Queue) SessionStartedAt() time.Time {
	return q.sessionStartedAt
}

// Active returns a copy of the active entry
func (q *Queue) Active() (QueueEntry, bool) {
	if q.activeIndex < 0 || q.activeIndex >= len(q.entries) {
		return QueueEntry{}, false
	}
	return q.entries[q.activeIndex], true
}

// IsLast reports whether the active entry is the final one
func (q *Queue) IsLast() bool {
	return q.activeIndex >= len(q.entries)-1
}

// URLs joins the source URLs so a cleared queue can be typed back in
func (q *Queue) URLs() string {
	urls := make([]string, len(q.entries))
	for i, e := range q.entries {
		urls[i] = e.SourceURL
	}
	return strings.Join(urls, ", ")
}

// State returns a copy safe to hand to other goroutines
func (q *Queue) State() QueueState {
	entries := make([]QueueEntry, len(q.entries))
	copy(entries, q.entries)
	return QueueState{
		Entries:                entries,
		ActiveIndex:            q.activeIndex,
		OffsetMinutes:          q.offsetMinutes,
		SessionDurationMinutes: q.sessionDurationMinutes,
		IsPlaying:              q.isPlaying,
		SessionStartedAt:       q.sessionStartedAt,
	}
}

// Snapshot returns the persistable part of the queue
func (q *Queue) Snapshot() *Snapshot {
	entries := make([]QueueEntry, len(q.entries))
	copy(entries, q.entries)
	return &Snapshot{
		Version:                SnapshotVersion,
		Entries:                entries,
		ActiveIndex:            q.activeIndex,
		OffsetMinutes:          q.offsetMinutes,
		SessionDurationMinutes: q.sessionDurationMinutes,
	}
}

func (q *Queue) clampIndex(i int) int {
	if len(q.entries) == 0 || i < 0 {
		return 0
	}
	if i >= len(q.entries) {
		return len(q.entries) - 1
	}
	return i
}

func clampMinutes(minutes int) int {
	if minutes < 0 {
		return 0
	}
	return minutes
}
