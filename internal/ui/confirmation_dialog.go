package ui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
)

type ConfirmationDialog struct {
	visible bool
	title   string
	message string
	onYes   func()
	onNo    func()
}

func NewConfirmationDialog() *ConfirmationDialog {
	return &ConfirmationDialog{}
}

func (c *ConfirmationDialog) Show(title, message string, onYes, onNo func()) {
	c.visible = true
	c.title = title
	c.message = message
	c.onYes = onYes
	c.onNo = onNo
}

func (c *ConfirmationDialog) Hide() {
	c.visible = false
	c.title = ""
	c.message = ""
	c.onYes = nil
	c.onNo = nil
}

func (c *ConfirmationDialog) IsVisible() bool {
	return c.visible
}

func (c *ConfirmationDialog) Draw(s tcell.Screen) {
	if !c.visible {
		return
	}

	w, screenHeight := s.Size()
	dialogWidth := min(50, w)
	dialogHeight := min(8, screenHeight)
	startX := max((w-dialogWidth)/2, 0)
	startY := max((screenHeight-dialogHeight)/2, 0)

	style := tcell.StyleDefault.Background(tcell.ColorDarkRed).Foreground(tcell.ColorWhite)
	drawBox(s, startX, startY, dialogWidth, dialogHeight, style)

	titleStyle := style.Foreground(tcell.ColorYellow).Bold(true)
	drawText(s, max(startX+(dialogWidth-len(c.title))/2, startX+2), startY+1, titleStyle, c.title)

	for i, line := range wrapText(c.message, dialogWidth-4) {
		if i+3 >= dialogHeight-2 {
			break
		}
		drawText(s, startX+2, startY+3+i, style, line)
	}

	buttonStyle := style.Bold(true)
	buttonsY := startY + dialogHeight - 2
	drawText(s, startX+dialogWidth/2-6, buttonsY, buttonStyle, "[Y]es")
	drawText(s, startX+dialogWidth/2+2, buttonsY, buttonStyle, "[N]o")
}

func (c *ConfirmationDialog) HandleKey(ev *tcell.EventKey) bool {
	if !c.visible {
		return false
	}

	var action func()
	switch ev.Key() {
	case tcell.KeyEscape:
		action = c.onNo
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'y', 'Y':
			action = c.onYes
		case 'n', 'N':
			action = c.onNo
		default:
			return true
		}
	default:
		return true // Consume all other keys when visible
	}

	// Hide first so the callback may open another dialog
	c.Hide()
	if action != nil {
		action()
	}
	return true
}

// wrapText wraps text on spaces to fit within width
func wrapText(text string, width int) []string {
	if width <= 0 {
		return nil
	}

	var lines []string
	var line strings.Builder
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && line.Len()+1+len(word) > width {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines
}
