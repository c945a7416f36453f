package player

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

type PlayerState int

const (
	StateStopped PlayerState = iota
	StatePlaying
	StatePaused
)

type EventType int

const (
	// EventProgress carries the current position and the reported length
	EventProgress EventType = iota
	// EventEnded means the video at URL played to its end
	EventEnded
)

// Event is a notification from mpv about the loaded video
type Event struct {
	Type     EventType
	URL      string
	PlayID   uint64 // the load this event belongs to, as returned by Play
	Position time.Duration
	Duration time.Duration
}

// Options configures the mpv process
type Options struct {
	Path       string // mpv binary, defaults to "mpv"
	NoVideo    bool   // audio only
	SocketPath string // IPC socket, defaults to a per-process path in the temp dir
}

type Player struct {
	path       string
	noVideo    bool
	socketPath string

	mu       sync.Mutex
	cmd      *exec.Cmd
	url      string
	entryID  int
	playID   uint64
	state    PlayerState
	position time.Duration
	duration time.Duration

	events    chan Event
	stopCh    chan struct{}
	eventConn net.Conn
	eventStop chan struct{}
}

type mpvCommand struct {
	Command   []interface{} `json:"command"`
	RequestID int           `json:"request_id,omitempty"`
}

type mpvResponse struct {
	Data      interface{} `json:"data"`
	RequestID int         `json:"request_id"`
	Error     string      `json:"error"`
}

type mpvEvent struct {
	Event           string `json:"event"`
	Reason          string `json:"reason,omitempty"`
	PlaylistEntryID int    `json:"playlist_entry_id,omitempty"`
}

var (
	errSocketTimeout = errors.New("mpv socket not created after timeout")
	errNotConnected  = errors.New("failed to connect to mpv socket")
)

func New(opts Options) *Player {
	if opts.Path == "" {
		opts.Path = "mpv"
	}
	if opts.SocketPath == "" {
		opts.SocketPath = filepath.Join(os.TempDir(), fmt.Sprintf("video-timer-mpv-%d.sock", os.Getpid()))
	}

	p := &Player{
		path:       opts.Path,
		noVideo:    opts.NoVideo,
		socketPath: opts.SocketPath,
		events:     make(chan Event, 16),
		state:      StateStopped,
	}

	// Clean up any stale socket from previous run
	os.Remove(p.socketPath)

	return p
}

// Events delivers progress and end-of-video notifications
func (p *Player) Events() <-chan Event {
	return p.events
}

func (p *Player) args() []string {
	args := []string{
		"--really-quiet",
		"--no-terminal",
		fmt.Sprintf("--input-ipc-server=%s", p.socketPath),
		"--idle",
		"--keep-open=no", // mpv reports end-file with reason eof and goes idle
	}
	if p.noVideo {
		args = append(args, "--no-video", "--force-window=no")
	}
	return args
}

// startLocked launches mpv in idle mode and connects the event listener
func (p *Player) startLocked() error {
	if p.cmd != nil {
		return nil
	}

	os.Remove(p.socketPath)

	p.cmd = exec.Command(p.path, p.args()...)
	if err := p.cmd.Start(); err != nil {
		p.cmd = nil
		return fmt.Errorf("failed to start mpv: %w", err)
	}

	// Wait for mpv to create the socket with timeout
	socketReady := false
	for i := 0; i < 20; i++ {
		if _, err := os.Stat(p.socketPath); err == nil {
			socketReady = true
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	if !socketReady {
		p.cmd.Process.Kill()
		p.cmd.Wait()
		p.cmd = nil
		return errSocketTimeout
	}

	if err := p.startEventListener(); err != nil {
		log.Printf("Warning: failed to start event listener: %v", err)
	}

	p.stopCh = make(chan struct{})
	go p.watchProgress(p.stopCh)

	log.Printf("Player: mpv started (video=%v)", !p.noVideo)
	return nil
}

// Play loads url and starts playback at start. If url is already loaded and
// paused, it seeks instead of reloading. The returned id changes with every
// load and tags the events of that load.
func (p *Player) Play(url string, start time.Duration) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.startLocked(); err != nil {
		return 0, err
	}

	err := p.playLocked(url, start)
	if errors.Is(err, errNotConnected) {
		// mpv went away, e.g. its window was closed
		log.Printf("Player: mpv not reachable, restarting: %v", err)
		p.stop()
		if err := p.startLocked(); err != nil {
			return 0, err
		}
		err = p.playLocked(url, start)
	}
	if err != nil {
		return 0, err
	}
	return p.playID, nil
}

func (p *Player) playLocked(url string, start time.Duration) error {
	seconds := int(start / time.Second)

	if p.state == StatePaused && p.url == url {
		if _, err := p.sendCommand(mpvCommand{Command: []interface{}{"seek", seconds, "absolute"}}); err != nil {
			log.Printf("Player: seek failed, reloading: %v", err)
		} else {
			return p.unpauseLocked()
		}
	}

	if _, err := p.sendCommand(mpvCommand{Command: []interface{}{"set_property", "start", strconv.Itoa(seconds)}}); err != nil {
		return fmt.Errorf("failed to set start position: %w", err)
	}

	resp, err := p.sendCommand(mpvCommand{Command: []interface{}{"loadfile", url}})
	if err != nil {
		return fmt.Errorf("failed to load file: %w", err)
	}

	p.url = url
	p.entryID = playlistEntryID(resp)
	p.playID++
	p.position = start
	p.duration = 0

	log.Printf("Player: loaded %s at %ds", url, seconds)
	return p.unpauseLocked()
}

func (p *Player) unpauseLocked() error {
	if _, err := p.sendCommand(mpvCommand{Command: []interface{}{"set_property", "pause", false}}); err != nil {
		return fmt.Errorf("failed to unpause: %w", err)
	}
	p.state = StatePlaying
	return nil
}

func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePlaying {
		return nil
	}

	if _, err := p.sendCommand(mpvCommand{Command: []interface{}{"set_property", "pause", true}}); err != nil {
		return fmt.Errorf("failed to pause: %w", err)
	}

	p.state = StatePaused
	return nil
}

func (p *Player) GetState() PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Cleanup ensures all resources are properly released
// This should be called when the application is shutting down
func (p *Player) Cleanup() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stop()
	os.Remove(p.socketPath)
}

func (p *Player) stop() {
	p.state = StateStopped

	closeOnce(p.stopCh)
	closeOnce(p.eventStop)
	if p.eventConn != nil {
		p.eventConn.Close()
		p.eventConn = nil
	}

	if p.cmd != nil && p.cmd.Process != nil {
		// Try graceful quit first
		p.sendCommand(mpvCommand{Command: []interface{}{"quit"}})

		done := make(chan error, 1)
		go func() {
			done <- p.cmd.Wait()
		}()

		select {
		case <-done:
		case <-time.After(500 * time.Millisecond):
			log.Printf("Force killing mpv process (pid: %d)", p.cmd.Process.Pid)
			if err := p.cmd.Process.Kill(); err != nil {
				log.Printf("Error killing mpv process: %v", err)
			}
			<-done
		}
	}

	p.cmd = nil
	p.url = ""
	p.entryID = 0
	p.position = 0
	p.duration = 0
}

func closeOnce(ch chan struct{}) {
	if ch == nil {
		return
	}
	select {
	case <-ch:
	default:
		close(ch)
	}
}

// sendCommand sends a command to mpv via IPC socket
func (p *Player) sendCommand(cmd mpvCommand) (*mpvResponse, error) {
	conn, err := net.Dial("unix", p.socketPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errNotConnected, err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(2 * time.Second))

	data, err := encodeCommand(cmd)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write command: %w", err)
	}

	// mpv may interleave events on a fresh connection; skip to the reply
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		var probe struct {
			Event string `json:"event"`
		}
		if json.Unmarshal(line, &probe) == nil && probe.Event != "" {
			continue
		}

		var response mpvResponse
		if err := json.Unmarshal(line, &response); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response: %w", err)
		}
		if response.Error != "" && response.Error != "success" {
			return &response, fmt.Errorf("mpv error: %s", response.Error)
		}
		return &response, nil
	}
}

func encodeCommand(cmd mpvCommand) ([]byte, error) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command: %w", err)
	}
	return append(data, '\n'), nil
}

// playlistEntryID extracts the id mpv assigns to a loadfile request.
// Older mpv versions return no data; zero means unknown.
func playlistEntryID(resp *mpvResponse) int {
	if resp == nil {
		return 0
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		return 0
	}
	if id, ok := data["playlist_entry_id"].(float64); ok {
		return int(id)
	}
	return 0
}

// endedNaturally reports whether ev is the natural end of the entry loaded as entryID
func endedNaturally(ev mpvEvent, entryID int) bool {
	if ev.Event != "end-file" || ev.Reason != "eof" {
		return false
	}
	return entryID == 0 || ev.PlaylistEntryID == 0 || ev.PlaylistEntryID == entryID
}

func (p *Player) emit(ev Event) {
	select {
	case p.events <- ev:
	default:
		if ev.Type == EventEnded {
			// never drop an end notification; progress can wait
			go func() { p.events <- ev }()
		}
	}
}

func (p *Player) watchProgress(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.mu.Lock()
			state, url := p.state, p.url
			p.mu.Unlock()

			if state != StatePlaying && state != StatePaused {
				continue
			}

			pos, posErr := p.getSeconds("time-pos")
			dur, durErr := p.getSeconds("duration")
			if posErr != nil && durErr != nil {
				continue
			}

			p.mu.Lock()
			if p.url != url {
				p.mu.Unlock()
				continue
			}
			if posErr == nil {
				p.position = pos
			}
			if durErr == nil && dur > 0 {
				p.duration = dur
			}
			ev := Event{Type: EventProgress, URL: url, PlayID: p.playID, Position: p.position, Duration: p.duration}
			p.mu.Unlock()

			p.emit(ev)
		}
	}
}

func (p *Player) getSeconds(property string) (time.Duration, error) {
	resp, err := p.sendCommand(mpvCommand{Command: []interface{}{"get_property", property}})
	if err != nil {
		return 0, err
	}
	v, ok := resp.Data.(float64)
	if !ok || v < 0 {
		return 0, fmt.Errorf("property %s unavailable", property)
	}
	return time.Duration(v * float64(time.Second)), nil
}

// startEventListener starts listening for mpv events
func (p *Player) startEventListener() error {
	conn, err := net.Dial("unix", p.socketPath)
	if err != nil {
		return fmt.Errorf("failed to connect for events: %w", err)
	}

	data, _ := encodeCommand(mpvCommand{Command: []interface{}{"enable_event", "end-file"}})
	if _, err := conn.Write(data); err != nil {
		conn.Close()
		return fmt.Errorf("failed to enable events: %w", err)
	}

	p.eventConn = conn
	p.eventStop = make(chan struct{})
	go p.handleEvents(conn, p.eventStop)

	return nil
}

// handleEvents processes mpv events
func (p *Player) handleEvents(conn net.Conn, stop <-chan struct{}) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	var line []byte
	for {
		select {
		case <-stop:
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))

		chunk, err := reader.ReadBytes('\n')
		line = append(line, chunk...)
		if err != nil {
			// Timeout is normal, keep the partial line
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			log.Printf("Event reader error: %v", err)
			return
		}
		p.handleEventLine(line)
		line = nil
	}
}

func (p *Player) handleEventLine(line []byte) {
	var event mpvEvent
	if err := json.Unmarshal(line, &event); err != nil || event.Event == "" {
		return
	}

	p.mu.Lock()
	ended := endedNaturally(event, p.entryID)
	url := p.url
	playID := p.playID
	if ended {
		p.state = StateStopped
		if p.duration > 0 {
			p.position = p.duration
		}
	}
	ev := Event{Type: EventEnded, URL: url, PlayID: playID, Position: p.position, Duration: p.duration}
	p.mu.Unlock()

	if !ended {
		if event.Event == "end-file" {
			log.Printf("Player: end-file (%s) ignored", event.Reason)
		}
		return
	}
	if url == "" {
		return
	}

	log.Printf("Player: %s reached end of file", url)
	p.emit(ev)
}
