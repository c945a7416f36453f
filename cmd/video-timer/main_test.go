package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/csams/video-timer/internal/models"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).Run(append([]string{"video-timer"}, args...))
	return out.String(), err
}

func TestResolveWithoutTitles(t *testing.T) {
	out, err := runCLI(t, "resolve", "--no-titles",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ; not a link",
		"https://youtu.be/9bZkp7q19f0")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d: %q", len(lines), out)
	}
	if lines[0] != "1\tdQw4w9WgXcQ\t\thttps://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("Unexpected first line %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "2\t9bZkp7q19f0\t") {
		t.Errorf("Unexpected second line %q", lines[1])
	}
}

func TestResolveNothing(t *testing.T) {
	out, err := runCLI(t, "resolve", "--no-titles", "hello, world")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(out, "No video links found") {
		t.Errorf("Expected a no-links message, got %q", out)
	}

	if _, err := runCLI(t, "resolve"); !errors.Is(err, errNoLinks) {
		t.Errorf("Expected errNoLinks, got %v", err)
	}
}

func TestShowAndReset(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, "--config-dir", dir, "show")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(out, "No saved queue") {
		t.Errorf("Expected no saved queue, got %q", out)
	}

	store := models.NewSnapshotStore(dir)
	store.Save(&models.Snapshot{
		Version: models.SnapshotVersion,
		Entries: []models.QueueEntry{
			{SourceURL: "https://youtu.be/dQw4w9WgXcQ", ID: "dQw4w9WgXcQ", Title: "First"},
			{SourceURL: "https://youtu.be/9bZkp7q19f0", ID: "9bZkp7q19f0"},
		},
		ActiveIndex:            1,
		OffsetMinutes:          7,
		SessionDurationMinutes: 25,
	})

	out, err = runCLI(t, "--config-dir", dir, "show")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(out, "Duration: 25 min  Start: 7 min  Videos: 2") {
		t.Errorf("Expected summary line, got %q", out)
	}
	if !strings.Contains(out, "  1\tdQw4w9WgXcQ\tFirst") {
		t.Errorf("Expected first entry unmarked, got %q", out)
	}
	if !strings.Contains(out, "* 2\t9bZkp7q19f0\thttps://youtu.be/9bZkp7q19f0") {
		t.Errorf("Expected active second entry falling back to its URL, got %q", out)
	}

	out, err = runCLI(t, "--config-dir", dir, "reset")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(out, "Removed") {
		t.Errorf("Expected removal message, got %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "state.json")); !os.IsNotExist(err) {
		t.Errorf("Expected snapshot to be gone, got %v", err)
	}
}

func TestRedirectLog(t *testing.T) {
	dir := t.TempDir()
	logFile = ""

	closeLog, err := redirectLog(filepath.Join(dir, "nested"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	closeLog()

	if _, err := os.Stat(filepath.Join(dir, "nested", "video-timer.log")); err != nil {
		t.Errorf("Expected log file to exist, got %v", err)
	}
}
