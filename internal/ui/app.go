package ui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	"github.com/csams/video-timer/internal/models"
	"github.com/csams/video-timer/internal/playback"
	"github.com/csams/video-timer/internal/player"
	"github.com/gdamore/tcell/v2"
)

const (
	tickInterval = 500 * time.Millisecond
	loadTimeout  = 30 * time.Second
)

// Player is the part of the mpv driver the UI needs besides what the
// controller already drives
type Player interface {
	Events() <-chan player.Event
	Cleanup()
}

type App struct {
	screen        tcell.Screen
	quit          chan struct{}
	quitOnce      sync.Once
	shutdownOnce  sync.Once
	mode          Mode
	ctrl          *playback.Controller
	player        Player
	state         models.QueueState
	queue         *QueueView
	search        *SearchState
	form          *LineEditor
	offsetField   *LineEditor
	durationField *LineEditor
	helpDialog    *HelpDialog
	confirmDialog *ConfirmationDialog
	statusMessage string
	statusIsError bool
	loading       bool
	pasting       bool
	progress      player.Event
}

// readClipboard is swapped out in tests
var readClipboard = clipboard.ReadAll

type Mode int

const (
	ModeNormal Mode = iota
	ModeInput
	ModeOffset
	ModeDuration
	ModeSearch
)

// Payloads posted to the event loop with tcell.NewEventInterrupt
type (
	stateChanged struct{ state models.QueueState }
	loadFinished struct {
		count int
		err   error
	}
	progressUpdate struct{ event player.Event }
	tick           struct{}
	quitRequest    struct{}
)

// NewApp creates the TUI around ctrl. p may be nil when playback is
// driven by something that produces no events.
func NewApp(ctrl *playback.Controller, p Player) *App {
	search := NewSearchState()
	return &App{
		quit:          make(chan struct{}),
		mode:          ModeNormal,
		ctrl:          ctrl,
		player:        p,
		queue:         NewQueueView(search),
		search:        search,
		form:          NewLineEditor(),
		offsetField:   NewNumberEditor(),
		durationField: NewNumberEditor(),
		helpDialog:    NewHelpDialog(),
		confirmDialog: NewConfirmationDialog(),
	}
}

func (a *App) Run() error {
	s, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := s.Init(); err != nil {
		return err
	}

	defer func() {
		a.requestQuit()
		a.shutdown()
		s.Fini()

		if r := recover(); r != nil {
			log.Printf("Panic during shutdown: %v", r)
		}
	}()

	a.attach(s)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Println("Received interrupt signal, shutting down...")
			a.post(quitRequest{})
		case <-a.quit:
		}
	}()

	go a.handlePlayerEvents()
	go a.runTicker()
	a.draw()

	a.handleEvents()

	log.Println("Shutdown complete")
	return nil
}

// attach binds the app to an initialized screen and loads the current state
func (a *App) attach(s tcell.Screen) {
	a.screen = s
	s.EnablePaste()
	s.SetStyle(tcell.StyleDefault.Background(ColorBg).Foreground(ColorFg))
	s.Clear()

	a.ctrl.Subscribe(func(st models.QueueState) {
		a.post(stateChanged{state: st})
	})
	a.setState(a.ctrl.State())
	a.queue.SelectEntry(a.state.ActiveIndex)
}

// post hands data to the event loop; only the loop goroutine draws
func (a *App) post(data interface{}) {
	if a.screen == nil {
		return
	}
	if err := a.screen.PostEvent(tcell.NewEventInterrupt(data)); err != nil {
		log.Printf("UI: dropped event %T: %v", data, err)
	}
}

func (a *App) requestQuit() {
	a.quitOnce.Do(func() {
		close(a.quit)
	})
}

// shutdown folds a running session into the offset and stops mpv
func (a *App) shutdown() {
	a.shutdownOnce.Do(func() {
		log.Println("Shutting down video-timer...")

		a.ctrl.Close()

		if a.player != nil {
			log.Println("Stopping player...")
			a.player.Cleanup()
		}
	})
}

func (a *App) handleEvents() {
	for {
		ev := a.screen.PollEvent()
		if ev == nil {
			return
		}

		switch ev := ev.(type) {
		case *tcell.EventResize:
			a.screen.Sync()
			a.draw()
		case *tcell.EventPaste:
			a.pasting = ev.Start()
		case *tcell.EventKey:
			if a.handleKey(ev) {
				a.draw()
			}
		case *tcell.EventInterrupt:
			if a.handleInterrupt(ev.Data()) {
				a.draw()
			}
		}

		select {
		case <-a.quit:
			return
		default:
		}
	}
}

// handleInterrupt applies work finished off the loop goroutine.
// It reports whether a redraw is needed.
func (a *App) handleInterrupt(data interface{}) bool {
	switch d := data.(type) {
	case stateChanged:
		a.setState(d.state)
	case loadFinished:
		a.finishLoad(d.count, d.err)
	case progressUpdate:
		a.progress = d.event
	case tick:
		return a.state.IsPlaying
	case quitRequest:
		a.requestQuit()
		return false
	default:
		return false
	}
	return true
}

// handlePlayerEvents forwards mpv notifications to the controller
func (a *App) handlePlayerEvents() {
	if a.player == nil {
		return
	}
	events := a.player.Events()
	for {
		select {
		case <-a.quit:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case player.EventProgress:
				if ev.Duration > 0 {
					a.ctrl.ObserveLength(ev.URL, ev.Duration)
				}
				a.post(progressUpdate{event: ev})
			case player.EventEnded:
				a.ctrl.VideoEnded(ev.URL, ev.PlayID)
			}
		}
	}
}

// runTicker refreshes the remaining time while a session runs
func (a *App) runTicker() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.quit:
			return
		case <-ticker.C:
			a.post(tick{})
		}
	}
}

func (a *App) setState(st models.QueueState) {
	a.state = st
	a.queue.SetState(st)
	if !st.IsPlaying {
		a.progress = player.Event{}
	}
}

func (a *App) handleKey(ev *tcell.EventKey) bool {
	// Help dialog takes precedence over all other input
	if a.helpDialog.IsVisible() {
		return a.helpDialog.HandleKey(ev)
	}

	if a.confirmDialog.IsVisible() {
		return a.confirmDialog.HandleKey(ev)
	}

	switch a.mode {
	case ModeInput:
		return a.handleFormKey(ev)
	case ModeOffset, ModeDuration:
		return a.handleFieldKey(ev)
	case ModeSearch:
		return a.handleSearchKey(ev)
	}

	switch ev.Key() {
	case tcell.KeyEnter:
		if len(a.state.Entries) == 0 {
			a.openForm("")
			return true
		}
		if i := a.queue.GetSelectedIndex(); i >= 0 {
			a.report(a.ctrl.SelectEntry(i))
			a.setState(a.ctrl.State())
		}
		return true
	case tcell.KeyEscape:
		if a.search.Active() {
			a.search.Clear()
			a.queue.Refresh()
			a.queue.SelectEntry(a.state.ActiveIndex)
		}
		a.statusMessage = ""
		return true
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'Q':
			a.requestQuit()
			return false
		case '?':
			a.helpDialog.Show()
			return true
		case 'i':
			a.openForm("")
			return true
		case 'p':
			a.pasteClipboard()
			return true
		case ' ':
			a.togglePlay()
			return true
		case 'c':
			a.confirmClear()
			return true
		case 'x':
			a.removeSelected()
			return true
		case 'o':
			a.openField(ModeOffset)
			return true
		case 'd':
			a.openField(ModeDuration)
			return true
		case '/':
			a.mode = ModeSearch
			a.statusMessage = ""
			return true
		}
	}

	return a.queue.HandleKey(ev)
}

func (a *App) openForm(text string) {
	if a.ctrl.Running() {
		a.report(playback.ErrPlaying)
		return
	}
	a.form.SetText(text)
	a.mode = ModeInput
	a.statusMessage = ""
}

// pasteClipboard opens the form with the clipboard contents
func (a *App) pasteClipboard() {
	text, err := readClipboard()
	if err != nil {
		log.Printf("UI: clipboard: %v", err)
		a.setStatus("Clipboard unavailable", true)
		return
	}
	a.openForm("")
	if a.mode == ModeInput {
		a.form.InsertString(pastedLinks(text))
	}
}

// pastedLinks turns whitespace separated links into the form's separator
func pastedLinks(text string) string {
	return strings.Join(strings.Fields(text), ", ")
}

func (a *App) handleFormKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape:
		a.mode = ModeNormal
		return true
	case tcell.KeyEnter:
		// Pasted newlines separate links
		if a.pasting {
			a.form.InsertChar(',')
			return true
		}
		a.startLoad(a.form.Text())
		return true
	case tcell.KeyCtrlV:
		if text, err := readClipboard(); err == nil {
			a.form.InsertString(pastedLinks(text))
		}
		return true
	}
	a.form.HandleKey(ev)
	return true
}

// startLoad resolves raw off the loop goroutine; titles may take a while
func (a *App) startLoad(raw string) {
	if a.loading {
		return
	}
	if strings.TrimSpace(raw) == "" {
		a.setStatus("Paste one or more video links", true)
		return
	}
	a.loading = true
	a.setStatus("Resolving links...", false)

	go func() {
		count, err := a.runLoad(raw)
		a.post(loadFinished{count: count, err: err})
	}()
}

func (a *App) runLoad(raw string) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()
	return a.ctrl.Load(ctx, raw)
}

func (a *App) finishLoad(count int, err error) {
	a.loading = false
	if err != nil {
		a.report(err)
		return
	}

	a.setState(a.ctrl.State())
	if count == 0 {
		a.setStatus("No video links found", true)
		return
	}

	a.form.Clear()
	a.mode = ModeNormal
	a.queue.SelectEntry(a.state.ActiveIndex)
	a.setStatus(fmt.Sprintf("Loaded %d videos", count), false)
}

func (a *App) confirmClear() {
	if len(a.state.Entries) == 0 {
		return
	}
	if a.ctrl.Running() {
		a.report(playback.ErrPlaying)
		return
	}
	a.confirmDialog.Show(
		"Clear Queue",
		fmt.Sprintf("Remove all %d videos? Their links go back into the form.", len(a.state.Entries)),
		a.clearQueue,
		nil,
	)
}

func (a *App) clearQueue() {
	urls, err := a.ctrl.ClearQueue()
	if err != nil {
		a.report(err)
		return
	}
	a.setState(a.ctrl.State())
	a.openForm(urls)
}

func (a *App) removeSelected() {
	i := a.queue.GetSelectedIndex()
	if i < 0 {
		return
	}
	if err := a.ctrl.RemoveEntry(i); err != nil {
		a.report(err)
		return
	}
	a.setState(a.ctrl.State())
}

func (a *App) togglePlay() {
	err := a.ctrl.TogglePlay()
	a.setState(a.ctrl.State())
	if err != nil {
		a.report(err)
		return
	}
	if a.state.IsPlaying {
		a.queue.SelectEntry(a.state.ActiveIndex)
		a.setStatus("Session started", false)
	} else {
		a.setStatus("Session stopped", false)
	}
}

func (a *App) openField(mode Mode) {
	if a.ctrl.Running() {
		a.report(playback.ErrPlaying)
		return
	}
	a.mode = mode
	a.statusMessage = ""
	if mode == ModeOffset {
		a.offsetField.SetText(strconv.Itoa(a.state.OffsetMinutes))
	} else {
		a.durationField.SetText(strconv.Itoa(a.state.SessionDurationMinutes))
	}
}

func (a *App) activeField() *LineEditor {
	if a.mode == ModeDuration {
		return a.durationField
	}
	return a.offsetField
}

func (a *App) handleFieldKey(ev *tcell.EventKey) bool {
	field := a.activeField()
	switch ev.Key() {
	case tcell.KeyEscape:
		a.mode = ModeNormal
		return true
	case tcell.KeyEnter, tcell.KeyTab:
		a.commitField(field)
		return true
	}
	field.HandleKey(ev)
	return true
}

func (a *App) commitField(field *LineEditor) {
	minutes := 0
	if text := strings.TrimSpace(field.Text()); text != "" {
		n, err := strconv.Atoi(text)
		if err != nil {
			a.setStatus("Not a number: "+text, true)
			return
		}
		minutes = n
	}

	var err error
	if a.mode == ModeDuration {
		err = a.ctrl.SetSessionDuration(minutes)
	} else {
		err = a.ctrl.SetOffset(minutes)
	}
	a.mode = ModeNormal
	a.setState(a.ctrl.State())
	a.report(err)
}

func (a *App) handleSearchKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape:
		a.search.Clear()
		a.mode = ModeNormal
	case tcell.KeyEnter:
		a.mode = ModeNormal
	case tcell.KeyCtrlT:
		a.setStatus(a.search.CycleMinScore(), false)
	case tcell.KeyDown, tcell.KeyUp:
		return a.queue.HandleKey(ev)
	default:
		a.search.Editor().HandleKey(ev)
	}
	a.queue.Refresh()
	return true
}

// validationMessage reports an offset past the end of the active video
func (a *App) validationMessage() string {
	length, ok := a.state.KnownLengthMinutes()
	if !ok {
		return ""
	}
	offset := a.state.OffsetMinutes
	if a.mode == ModeOffset {
		n, err := strconv.Atoi(strings.TrimSpace(a.offsetField.Text()))
		if err != nil {
			return ""
		}
		offset = n
	}
	if offset > length {
		return fmt.Sprintf("Maximum value is %d", length)
	}
	return ""
}

// report shows err in the status bar
func (a *App) report(err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, playback.ErrPlaying):
		a.setStatus("Stop the timer first", true)
	case errors.Is(err, playback.ErrEmptyQueue):
		a.setStatus("Queue is empty, press i to add links", true)
	case errors.Is(err, playback.ErrNoDuration):
		a.setStatus("Set a session duration first (d)", true)
	case errors.Is(err, playback.ErrOffsetExceedsLength):
		a.setStatus(a.validationMessage(), true)
	default:
		log.Printf("UI: %v", err)
		a.setStatus(err.Error(), true)
	}
}

func (a *App) setStatus(msg string, isError bool) {
	a.statusMessage = msg
	a.statusIsError = isError
}

func (a *App) showForm() bool {
	return a.mode == ModeInput || len(a.state.Entries) == 0
}

func (a *App) draw() {
	w, h := a.screen.Size()
	style := tcell.StyleDefault.Background(ColorBg).Foreground(ColorFg)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a.screen.SetContent(x, y, ' ', nil, style)
		}
	}

	a.drawHeader(style)
	a.drawFields(2, style)
	for x := 0; x < w; x++ {
		a.screen.SetContent(x, 3, '─', nil, style.Foreground(ColorDimmed))
	}

	if a.showForm() {
		a.drawForm(5, style)
	} else {
		a.queue.Draw(a.screen, 0, 4, w, h-5)
	}
	a.drawStatusBar()

	// Dialogs go on top
	a.helpDialog.Draw(a.screen)
	a.confirmDialog.Draw(a.screen)

	a.screen.Show()
}

func (a *App) drawHeader(style tcell.Style) {
	w, _ := a.screen.Size()
	title := "Video Timer"
	if n := len(a.state.Entries); n > 0 {
		title = fmt.Sprintf("Video Timer (%d)", n)
	}
	drawText(a.screen, 1, 0, style.Bold(true).Foreground(ColorHeader), title)

	if active := a.state.Active(); active != nil {
		label := fmt.Sprintf("%d/%d  ", a.state.ActiveIndex+1, len(a.state.Entries))
		x := drawText(a.screen, 1, 1, style.Foreground(ColorLabel), label)
		drawCell(a.screen, x, 1, w-x-1, active.DisplayName(), style, style, nil, AlignLeft)
	}
}

func (a *App) drawFields(y int, style tcell.Style) {
	labelStyle := style.Foreground(ColorLabel)
	fieldStyle := style.Background(ColorBgHighlight)

	x := drawText(a.screen, 1, y, labelStyle, "Start ")
	a.drawNumber(x, y, a.offsetField, a.state.OffsetMinutes, a.mode == ModeOffset, fieldStyle)
	x = drawText(a.screen, x+6, y, style.Foreground(ColorDimmed), "min")

	x = drawText(a.screen, x+3, y, labelStyle, "Duration ")
	a.drawNumber(x, y, a.durationField, a.state.SessionDurationMinutes, a.mode == ModeDuration, fieldStyle)
	x = drawText(a.screen, x+6, y, style.Foreground(ColorDimmed), "min")

	if msg := a.validationMessage(); msg != "" {
		drawText(a.screen, x+3, y, style.Foreground(ColorError), msg)
	}
}

func (a *App) drawNumber(x, y int, field *LineEditor, value int, focused bool, style tcell.Style) {
	if focused {
		field.Draw(a.screen, x, y, 5, style, true)
		return
	}
	drawCell(a.screen, x, y, 5, strconv.Itoa(value), style, style, nil, AlignRight)
}

func (a *App) drawForm(y int, style tcell.Style) {
	w, _ := a.screen.Size()
	focused := a.mode == ModeInput

	drawText(a.screen, 1, y, style.Foreground(ColorLabel), "Video links, separated by , or ;")
	a.form.Draw(a.screen, 1, y+1, w-2, style.Background(ColorBgHighlight), focused)

	hint := "Press i or Enter to add links"
	if focused {
		hint = "Enter to load, Esc to cancel"
	}
	if a.loading {
		hint = "Resolving titles..."
	}
	drawText(a.screen, 1, y+3, style.Foreground(ColorDimmed), hint)
}

func (a *App) drawStatusBar() {
	w, h := a.screen.Size()
	style := tcell.StyleDefault.Background(ColorBgHighlight).Foreground(ColorFg)

	for x := 0; x < w; x++ {
		a.screen.SetContent(x, h-1, ' ', nil, style)
	}

	modeStr := ""
	switch a.mode {
	case ModeNormal:
		modeStr = "NORMAL"
		if a.search.Active() {
			modeStr = "/" + a.search.Query()
		}
	case ModeInput:
		modeStr = "INSERT"
	case ModeOffset:
		modeStr = "START"
	case ModeDuration:
		modeStr = "DURATION"
	case ModeSearch:
		modeStr = "/"
	}

	x := drawText(a.screen, 0, h-1, style, modeStr)
	if a.mode == ModeSearch {
		query := a.search.Editor()
		queryWidth := max(w/3, 10)
		query.Draw(a.screen, x, h-1, queryWidth, style, true)
		x += queryWidth
	}

	playerStatus := a.formatPlayerStatus()
	statusX := w - len([]rune(playerStatus)) - 1
	if playerStatus != "" {
		statusStyle := style.Foreground(ColorIdle)
		if a.state.IsPlaying {
			statusStyle = style.Foreground(ColorPlaying)
		}
		drawText(a.screen, statusX, h-1, statusStyle, playerStatus)
	}

	if a.statusMessage != "" {
		msgStyle := style.Foreground(ColorYellow)
		if a.statusIsError {
			msgStyle = style.Foreground(ColorError)
		}
		drawCell(a.screen, x+2, h-1, statusX-x-3, a.statusMessage, msgStyle, msgStyle, nil, AlignLeft)
	}
}

func (a *App) formatPlayerStatus() string {
	if len(a.state.Entries) == 0 {
		return ""
	}
	if !a.state.IsPlaying {
		return "■ Stopped"
	}

	status := "▶ " + formatTime(a.state.Remaining(time.Now())) + " left"
	if a.progress.Duration > 0 {
		status += fmt.Sprintf(" [%s/%s]", formatTime(a.progress.Position), formatTime(a.progress.Duration))
	}
	return status
}
