package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

type HelpDialog struct {
	visible      bool
	scrollOffset int
	visibleLines int // set during Draw
}

func NewHelpDialog() *HelpDialog {
	return &HelpDialog{visibleLines: 15}
}

func (h *HelpDialog) Show() {
	h.visible = true
	h.scrollOffset = 0
}

func (h *HelpDialog) Hide() {
	h.visible = false
}

func (h *HelpDialog) IsVisible() bool {
	return h.visible
}

var helpLines = []string{
	"",
	"Queue:",
	"  i             Edit the link form",
	"  p             Paste links from the clipboard into the form",
	"  Enter         Load links (in the form) / make entry active",
	"  c             Clear the queue, links go back into the form",
	"  x             Remove the selected entry",
	"  j / k         Move down/up",
	"  g / G         Go to top/bottom",
	"  Ctrl+D / U    Page down/up",
	"",
	"Session:",
	"  Space         Start/stop the session timer",
	"  o             Set the start offset (minutes)",
	"  d             Set the session duration (minutes)",
	"",
	"  Stopping early adds the elapsed minutes to the offset.",
	"  When the timer runs out the next entry starts at 0.",
	"",
	"Editing:",
	"  Ctrl+A / E    Start/end of line",
	"  Ctrl+K / U    Delete to end/start",
	"  Ctrl+W        Delete previous word",
	"  Alt+F / B     Word forward/backward",
	"  Ctrl+V        Paste from the clipboard",
	"  Esc           Cancel",
	"",
	"Other:",
	"  /             Fuzzy search titles and links",
	"  Ctrl+T        Cycle search strictness (while searching)",
	"  Esc           Clear search / close dialogs",
	"  ?             Show this help dialog",
	"  Q             Quit",
}

func (h *HelpDialog) Draw(s tcell.Screen) {
	if !h.visible {
		return
	}

	w, screenHeight := s.Size()

	maxLineWidth := 0
	for _, line := range helpLines {
		maxLineWidth = max(maxLineWidth, runewidth.StringWidth(line))
	}
	dialogWidth := min(max(maxLineWidth+4, 40), w-4)
	dialogHeight := min(max(len(helpLines)+6, 10), screenHeight-4)

	startX := max((w-dialogWidth)/2, 1)
	startY := max((screenHeight-dialogHeight)/2, 1)

	style := tcell.StyleDefault.Background(tcell.ColorDarkBlue).Foreground(tcell.ColorWhite)
	drawBox(s, startX, startY, dialogWidth, dialogHeight, style)

	title := "Help - Keybindings"
	titleStyle := style.Foreground(tcell.ColorYellow).Bold(true)
	drawText(s, startX+(dialogWidth-len(title))/2, startY+1, titleStyle, title)

	contentStartY := startY + 3
	h.visibleLines = max(dialogHeight-5, 1)
	h.clampScroll()

	for i := 0; i < h.visibleLines && i+h.scrollOffset < len(helpLines); i++ {
		drawCell(s, startX+2, contentStartY+i, dialogWidth-4, helpLines[i+h.scrollOffset], style, style, nil, AlignLeft)
	}

	hint := "Press Esc or ? to close this help dialog"
	if len(helpLines) > h.visibleLines {
		hint = "j/k to scroll, Esc to close"
	}
	hintStyle := style.Foreground(tcell.ColorGray)
	drawText(s, max(startX+(dialogWidth-len(hint))/2, startX+2), startY+dialogHeight-2, hintStyle, hint)
}

func (h *HelpDialog) HandleKey(ev *tcell.EventKey) bool {
	if !h.visible {
		return false
	}

	switch ev.Key() {
	case tcell.KeyEscape:
		h.Hide()
	case tcell.KeyUp:
		h.scrollOffset--
	case tcell.KeyDown:
		h.scrollOffset++
	case tcell.KeyRune:
		switch ev.Rune() {
		case '?', 'q':
			h.Hide()
		case 'j':
			h.scrollOffset++
		case 'k':
			h.scrollOffset--
		case 'g':
			h.scrollOffset = 0
		case 'G':
			h.scrollOffset = len(helpLines)
		}
	}
	h.clampScroll()

	return true // Consume all other keys when visible
}

func (h *HelpDialog) clampScroll() {
	maxScroll := max(len(helpLines)-h.visibleLines, 0)
	h.scrollOffset = min(max(h.scrollOffset, 0), maxScroll)
}

// drawBox fills a bordered rectangle
func drawBox(s tcell.Screen, x, y, width, height int, style tcell.Style) {
	if width < 2 || height < 2 {
		return
	}
	for row := y; row < y+height; row++ {
		for col := x; col < x+width; col++ {
			s.SetContent(col, row, ' ', nil, style)
		}
	}

	right, bottom := x+width-1, y+height-1
	for col := x + 1; col < right; col++ {
		s.SetContent(col, y, '─', nil, style)
		s.SetContent(col, bottom, '─', nil, style)
	}
	for row := y + 1; row < bottom; row++ {
		s.SetContent(x, row, '│', nil, style)
		s.SetContent(right, row, '│', nil, style)
	}
	s.SetContent(x, y, '┌', nil, style)
	s.SetContent(right, y, '┐', nil, style)
	s.SetContent(x, bottom, '└', nil, style)
	s.SetContent(right, bottom, '┘', nil, style)
}
