package models

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

func entries(ids ...string) []QueueEntry {
	result := make([]QueueEntry, len(ids))
	for i, id := range ids {
		result[i] = QueueEntry{
			SourceURL: "https://youtu.be/" + id,
			ID:        id,
		}
	}
	return result
}

func TestNewQueue(t *testing.T) {
	q := NewQueue(60)

	if q.Len() != 0 {
		t.Errorf("Expected empty queue, got %d entries", q.Len())
	}
	if q.SessionDurationMinutes() != 60 {
		t.Errorf("Expected session duration 60, got %d", q.SessionDurationMinutes())
	}
	if q.IsPlaying() {
		t.Error("Expected new queue not to be playing")
	}
	if _, ok := q.Active(); ok {
		t.Error("Expected no active entry in an empty queue")
	}
}

func TestQueue_ReplaceAll(t *testing.T) {
	q := NewQueue(60)
	q.ReplaceAll(entries("aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc"))
	q.SetActiveIndex(2)

	q.ReplaceAll(entries("ddddddddddd", "eeeeeeeeeee"))

	if q.Len() != 2 {
		t.Fatalf("Expected 2 entries, got %d", q.Len())
	}
	if q.ActiveIndex() != 0 {
		t.Errorf("Expected active index reset to 0, got %d", q.ActiveIndex())
	}
}

func TestQueue_ReplaceAll_DropsEntriesWithoutID(t *testing.T) {
	q := NewQueue(60)
	list := entries("aaaaaaaaaaa", "bbbbbbbbbbb")
	list = append(list[:1], append([]QueueEntry{{SourceURL: "not a video"}}, list[1:]...)...)

	q.ReplaceAll(list)

	if q.Len() != 2 {
		t.Fatalf("Expected 2 admitted entries, got %d", q.Len())
	}
	for _, e := range q.State().Entries {
		if e.ID == "" {
			t.Errorf("Entry without id was admitted: %+v", e)
		}
	}
}

func TestQueue_ClearAndURLs(t *testing.T) {
	q := NewQueue(60)
	q.ReplaceAll(entries("aaaaaaaaaaa", "bbbbbbbbbbb"))

	urls := q.URLs()
	expected := "https://youtu.be/aaaaaaaaaaa, https://youtu.be/bbbbbbbbbbb"
	if urls != expected {
		t.Errorf("Expected URLs %q, got %q", expected, urls)
	}

	q.Clear()
	if q.Len() != 0 {
		t.Errorf("Expected empty queue after Clear, got %d", q.Len())
	}
	if q.URLs() != "" {
		t.Errorf("Expected no URLs after Clear, got %q", q.URLs())
	}
}

func TestQueue_SetActiveIndexClamps(t *testing.T) {
	q := NewQueue(60)
	q.ReplaceAll(entries("aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc"))

	tests := []struct {
		in, want int
	}{
		{1, 1},
		{5, 2},
		{-3, 0},
		{2, 2},
	}
	for _, tt := range tests {
		q.SetActiveIndex(tt.in)
		if q.ActiveIndex() != tt.want {
			t.Errorf("SetActiveIndex(%d): expected %d, got %d", tt.in, tt.want, q.ActiveIndex())
		}
	}
}

func TestQueue_RemoveAt(t *testing.T) {
	tests := []struct {
		name        string
		length      int
		active      int
		remove      int
		wantActive  int
		wantEntries int
	}{
		{"before active shifts down", 3, 1, 0, 0, 2},
		{"after active unchanged", 3, 0, 2, 0, 2},
		{"active entry in the middle", 3, 1, 1, 1, 2},
		{"last entry while active", 3, 2, 2, 1, 2},
		{"only entry", 1, 0, 0, 0, 0},
		{"out of range ignored", 2, 1, 7, 1, 2},
		{"negative ignored", 2, 1, -1, 1, 2},
	}

	ids := []string{"aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQueue(60)
			q.ReplaceAll(entries(ids[:tt.length]...))
			q.SetActiveIndex(tt.active)

			q.RemoveAt(tt.remove)

			if q.ActiveIndex() != tt.wantActive {
				t.Errorf("Expected active index %d, got %d", tt.wantActive, q.ActiveIndex())
			}
			if q.Len() != tt.wantEntries {
				t.Errorf("Expected %d entries, got %d", tt.wantEntries, q.Len())
			}
		})
	}
}

func TestQueue_RemoveAtKeepsActiveEntry(t *testing.T) {
	q := NewQueue(60)
	q.ReplaceAll(entries("aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc"))
	q.SetActiveIndex(2)

	q.RemoveAt(0)

	active, ok := q.Active()
	if !ok || active.ID != "ccccccccccc" {
		t.Errorf("Expected active entry to stay on ccccccccccc, got %+v", active)
	}
}

func TestQueue_RemoveAtKeepsActiveIndexInRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 12).Draw(t, "n")
		list := make([]QueueEntry, n)
		for i := range list {
			list[i] = QueueEntry{SourceURL: "u", ID: "aaaaaaaaaaa"}
		}

		q := NewQueue(60)
		q.ReplaceAll(list)
		q.SetActiveIndex(rapid.IntRange(0, 12).Draw(t, "active"))

		removals := rapid.SliceOf(rapid.IntRange(-2, 14)).Draw(t, "removals")
		for _, i := range removals {
			q.RemoveAt(i)

			if q.Len() == 0 {
				if q.ActiveIndex() != 0 {
					t.Fatalf("Expected active index 0 on empty queue, got %d", q.ActiveIndex())
				}
				continue
			}
			if q.ActiveIndex() < 0 || q.ActiveIndex() > q.Len()-1 {
				t.Fatalf("Active index %d out of range for %d entries", q.ActiveIndex(), q.Len())
			}
		}
	})
}

func TestQueue_Advance(t *testing.T) {
	q := NewQueue(60)
	q.ReplaceAll(entries("aaaaaaaaaaa", "bbbbbbbbbbb"))

	if !q.Advance() {
		t.Fatal("Expected advance from the first entry")
	}
	if q.ActiveIndex() != 1 {
		t.Errorf("Expected active index 1, got %d", q.ActiveIndex())
	}
	if !q.IsLast() {
		t.Error("Expected second entry to be the last")
	}
	if q.Advance() {
		t.Error("Expected no advance past the last entry")
	}
	if q.ActiveIndex() != 1 {
		t.Errorf("Expected active index to stay 1, got %d", q.ActiveIndex())
	}
}

func TestQueue_Setters(t *testing.T) {
	q := NewQueue(60)
	q.SetOffset(12)
	q.SetSessionDuration(5)

	if q.OffsetMinutes() != 12 {
		t.Errorf("Expected offset 12, got %d", q.OffsetMinutes())
	}
	if q.SessionDurationMinutes() != 5 {
		t.Errorf("Expected duration 5, got %d", q.SessionDurationMinutes())
	}

	q.SetOffset(-4)
	q.SetSessionDuration(-1)
	if q.OffsetMinutes() != 0 || q.SessionDurationMinutes() != 0 {
		t.Errorf("Expected negative minutes clamped to 0, got offset %d duration %d",
			q.OffsetMinutes(), q.SessionDurationMinutes())
	}

	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	q.SetPlaying(true)
	q.SetSessionStartedAt(started)
	if !q.IsPlaying() || !q.SessionStartedAt().Equal(started) {
		t.Error("Expected playing state with recorded start time")
	}

	q.SetPlaying(false)
	if !q.SessionStartedAt().IsZero() {
		t.Error("Expected session start to be cleared when playing stops")
	}
}

func TestQueueState_OffsetExceedsLength(t *testing.T) {
	q := NewQueue(60)
	q.ReplaceAll(entries("aaaaaaaaaaa"))
	q.SetOffset(10)

	if q.State().OffsetExceedsLength() {
		t.Error("Unknown length should never be exceeded")
	}

	q.SetActiveLength(9*time.Minute + 59*time.Second)
	state := q.State()
	length, ok := state.KnownLengthMinutes()
	if !ok || length != 9 {
		t.Errorf("Expected known length 9, got %d (known=%v)", length, ok)
	}
	if !state.OffsetExceedsLength() {
		t.Error("Expected offset 10 to exceed a 9 minute video")
	}

	q.SetOffset(9)
	if q.State().OffsetExceedsLength() {
		t.Error("Expected offset equal to the length to be valid")
	}
}

func TestQueueState_Remaining(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	state := QueueState{SessionDurationMinutes: 3, SessionStartedAt: start}

	if got := state.Remaining(start.Add(time.Minute)); got != 0 {
		t.Errorf("Expected zero remaining while idle, got %v", got)
	}

	state.IsPlaying = true
	if got := state.Remaining(start.Add(50 * time.Second)); got != 3*time.Minute-50*time.Second {
		t.Errorf("Expected 2m10s remaining, got %v", got)
	}
	if got := state.Remaining(start.Add(5 * time.Minute)); got != 0 {
		t.Errorf("Expected zero remaining past the deadline, got %v", got)
	}
}

func TestQueueState_IsACopy(t *testing.T) {
	q := NewQueue(60)
	q.ReplaceAll(entries("aaaaaaaaaaa"))

	state := q.State()
	state.Entries[0].Title = "changed"

	active, _ := q.Active()
	if active.Title != "" {
		t.Error("Mutating a state copy should not change the queue")
	}
}

func TestQueueEntry_DisplayName(t *testing.T) {
	e := QueueEntry{SourceURL: "https://youtu.be/aaaaaaaaaaa", ID: "aaaaaaaaaaa"}
	if e.DisplayName() != e.SourceURL {
		t.Errorf("Expected URL fallback, got %q", e.DisplayName())
	}
	e.Title = "A talk"
	if e.DisplayName() != "A talk" {
		t.Errorf("Expected title, got %q", e.DisplayName())
	}
}
