package player

import (
	"bufio"
	"fmt"
	"net"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
)

// fakeMPV answers IPC commands on a unix socket and records them
type fakeMPV struct {
	mu       sync.Mutex
	listener net.Listener
	commands []string
	preface  string
}

func newFakeMPV(t *testing.T) (*fakeMPV, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "mpv.sock")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	f := &fakeMPV{listener: ln}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go f.serve(conn)
		}
	}()
	return f, path
}

func (f *fakeMPV) serve(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}
		var cmd mpvCommand
		if err := json.Unmarshal(line, &cmd); err != nil {
			return
		}

		parts := make([]string, len(cmd.Command))
		for i, arg := range cmd.Command {
			parts[i] = fmt.Sprint(arg)
		}

		f.mu.Lock()
		f.commands = append(f.commands, strings.Join(parts, " "))
		preface := f.preface
		f.mu.Unlock()

		if preface != "" {
			conn.Write([]byte(preface + "\n"))
		}
		if len(cmd.Command) > 0 && cmd.Command[0] == "loadfile" {
			conn.Write([]byte(`{"data":{"playlist_entry_id":7},"request_id":0,"error":"success"}` + "\n"))
			continue
		}
		conn.Write([]byte(`{"request_id":0,"error":"success"}` + "\n"))
	}
}

func (f *fakeMPV) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.commands))
	copy(out, f.commands)
	return out
}

// newConnectedPlayer returns a player talking to fake without launching mpv
func newConnectedPlayer(t *testing.T) (*Player, *fakeMPV) {
	fake, path := newFakeMPV(t)
	p := New(Options{SocketPath: path})
	p.cmd = &exec.Cmd{}
	return p, fake
}

func TestNew_Defaults(t *testing.T) {
	p := New(Options{})

	if p.path != "mpv" {
		t.Errorf("Expected default path mpv, got %q", p.path)
	}
	if !strings.Contains(p.socketPath, "video-timer-mpv-") {
		t.Errorf("Unexpected socket path %q", p.socketPath)
	}
	if p.GetState() != StateStopped {
		t.Error("Expected new player to be stopped")
	}
}

func TestArgs(t *testing.T) {
	video := New(Options{SocketPath: "/tmp/x.sock"}).args()
	audio := New(Options{SocketPath: "/tmp/x.sock", NoVideo: true}).args()

	joined := strings.Join(video, " ")
	if strings.Contains(joined, "--no-video") {
		t.Error("Expected video to be enabled by default")
	}
	if !strings.Contains(joined, "--input-ipc-server=/tmp/x.sock") || !strings.Contains(joined, "--idle") {
		t.Errorf("Missing IPC or idle flags: %v", video)
	}
	if !strings.Contains(strings.Join(audio, " "), "--no-video") {
		t.Errorf("Expected --no-video for audio-only, got %v", audio)
	}
}

func TestEncodeCommand(t *testing.T) {
	data, err := encodeCommand(mpvCommand{Command: []interface{}{"set_property", "pause", true}})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if string(data) != `{"command":["set_property","pause",true]}`+"\n" {
		t.Errorf("Unexpected encoding: %q", data)
	}
}

func TestEndedNaturally(t *testing.T) {
	tests := []struct {
		name    string
		ev      mpvEvent
		entryID int
		want    bool
	}{
		{"eof for loaded entry", mpvEvent{Event: "end-file", Reason: "eof", PlaylistEntryID: 3}, 3, true},
		{"eof for replaced entry", mpvEvent{Event: "end-file", Reason: "eof", PlaylistEntryID: 2}, 3, false},
		{"eof without ids", mpvEvent{Event: "end-file", Reason: "eof"}, 0, true},
		{"stopped by loadfile", mpvEvent{Event: "end-file", Reason: "stop", PlaylistEntryID: 3}, 3, false},
		{"error", mpvEvent{Event: "end-file", Reason: "error"}, 0, false},
		{"other event", mpvEvent{Event: "file-loaded"}, 0, false},
	}

	for _, tt := range tests {
		if got := endedNaturally(tt.ev, tt.entryID); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestPlaylistEntryID(t *testing.T) {
	var resp mpvResponse
	json.Unmarshal([]byte(`{"data":{"playlist_entry_id":12},"error":"success"}`), &resp)

	if got := playlistEntryID(&resp); got != 12 {
		t.Errorf("Expected 12, got %d", got)
	}
	if got := playlistEntryID(&mpvResponse{}); got != 0 {
		t.Errorf("Expected 0 for missing data, got %d", got)
	}
	if got := playlistEntryID(nil); got != 0 {
		t.Errorf("Expected 0 for nil response, got %d", got)
	}
}

func TestHandleEventLine_EndOfFile(t *testing.T) {
	p := New(Options{SocketPath: filepath.Join(t.TempDir(), "unused.sock")})
	p.url = "https://youtu.be/aaaaaaaaaaa"
	p.entryID = 3
	p.playID = 4
	p.state = StatePlaying
	p.duration = 5 * time.Minute

	p.handleEventLine([]byte(`{"event":"end-file","reason":"stop","playlist_entry_id":3}`))
	select {
	case ev := <-p.Events():
		t.Fatalf("Expected no event for reason stop, got %+v", ev)
	default:
	}

	p.handleEventLine([]byte(`{"event":"end-file","reason":"eof","playlist_entry_id":3}`))
	select {
	case ev := <-p.Events():
		if ev.Type != EventEnded || ev.URL != "https://youtu.be/aaaaaaaaaaa" {
			t.Errorf("Unexpected event: %+v", ev)
		}
		if ev.PlayID != 4 {
			t.Errorf("Expected play id 4, got %d", ev.PlayID)
		}
		if ev.Position != 5*time.Minute {
			t.Errorf("Expected final position at duration, got %v", ev.Position)
		}
	default:
		t.Fatal("Expected an end event")
	}

	if p.GetState() != StateStopped {
		t.Error("Expected player to be stopped after eof")
	}
}

func TestHandleEvents_PartialLines(t *testing.T) {
	p := New(Options{SocketPath: filepath.Join(t.TempDir(), "unused.sock")})
	p.url = "https://youtu.be/aaaaaaaaaaa"

	server, client := net.Pipe()
	stop := make(chan struct{})
	defer close(stop)
	go p.handleEvents(client, stop)

	go func() {
		server.Write([]byte(`{"event":"end-file",`))
		time.Sleep(250 * time.Millisecond)
		server.Write([]byte(`"reason":"eof"}` + "\n"))
	}()

	select {
	case ev := <-p.Events():
		if ev.Type != EventEnded {
			t.Errorf("Expected EventEnded, got %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for end event")
	}
}

func TestPlay_LoadsAtOffset(t *testing.T) {
	p, fake := newConnectedPlayer(t)

	id, err := p.Play("https://youtu.be/aaaaaaaaaaa", 90*time.Second)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if id != 1 {
		t.Errorf("Expected play id 1, got %d", id)
	}

	want := []string{
		"set_property start 90",
		"loadfile https://youtu.be/aaaaaaaaaaa",
		"set_property pause false",
	}
	got := fake.recorded()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Expected commands %v, got %v", want, got)
	}
	if p.entryID != 7 {
		t.Errorf("Expected playlist entry id 7, got %d", p.entryID)
	}
	if p.GetState() != StatePlaying {
		t.Error("Expected playing state")
	}
}

func TestPlay_ResumesPausedVideoBySeeking(t *testing.T) {
	p, fake := newConnectedPlayer(t)

	first, _ := p.Play("https://youtu.be/aaaaaaaaaaa", 0)
	if err := p.Pause(); err != nil {
		t.Fatalf("Unexpected pause error: %v", err)
	}
	if p.GetState() != StatePaused {
		t.Fatal("Expected paused state")
	}

	resumed, err := p.Play("https://youtu.be/aaaaaaaaaaa", 2*time.Minute)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	got := fake.recorded()
	tail := strings.Join(got[len(got)-2:], "|")
	if tail != "seek 120 absolute|set_property pause false" {
		t.Errorf("Expected seek then unpause, got %v", got)
	}
	if resumed != first {
		t.Errorf("Expected resuming to keep play id %d, got %d", first, resumed)
	}
}

func TestPlay_ReloadingSameURLChangesPlayID(t *testing.T) {
	p, _ := newConnectedPlayer(t)

	first, err := p.Play("https://youtu.be/aaaaaaaaaaa", 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// still playing, so the same link is loaded again
	second, err := p.Play("https://youtu.be/aaaaaaaaaaa", 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if second == first {
		t.Errorf("Expected a new play id for a reload, got %d twice", first)
	}
}

func TestPause_WhenNotPlaying(t *testing.T) {
	p, fake := newConnectedPlayer(t)

	if err := p.Pause(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if len(fake.recorded()) != 0 {
		t.Errorf("Expected no commands, got %v", fake.recorded())
	}
}

func TestSendCommand_SkipsInterleavedEvents(t *testing.T) {
	p, fake := newConnectedPlayer(t)
	fake.preface = `{"event":"playback-restart"}`

	resp, err := p.sendCommand(mpvCommand{Command: []interface{}{"get_property", "pause"}})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.Error != "success" {
		t.Errorf("Expected success response, got %+v", resp)
	}
}

func TestSendCommand_NoSocket(t *testing.T) {
	p := New(Options{SocketPath: filepath.Join(t.TempDir(), "missing.sock")})

	if _, err := p.sendCommand(mpvCommand{Command: []interface{}{"quit"}}); err == nil {
		t.Error("Expected error without a socket")
	}
}
