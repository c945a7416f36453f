package ui

import (
	"unicode"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

// LineEditor is a single-line text buffer with emacs-style editing.
// It backs the link form, the number fields and the search prompt.
type LineEditor struct {
	text   []rune
	cursor int
	accept func(rune) bool // nil accepts everything printable
}

// NewLineEditor creates an empty editor
func NewLineEditor() *LineEditor {
	return &LineEditor{}
}

// NewNumberEditor creates an editor that only accepts digits
func NewNumberEditor() *LineEditor {
	return &LineEditor{accept: unicode.IsDigit}
}

// SetText replaces the contents and moves the cursor to the end
func (e *LineEditor) SetText(text string) {
	e.text = []rune(text)
	e.cursor = len(e.text)
}

// Text returns the contents
func (e *LineEditor) Text() string {
	return string(e.text)
}

// Cursor returns the cursor position in runes
func (e *LineEditor) Cursor() int {
	return e.cursor
}

// Clear empties the editor
func (e *LineEditor) Clear() {
	e.text = nil
	e.cursor = 0
}

// InsertChar inserts a character at the cursor position
func (e *LineEditor) InsertChar(ch rune) bool {
	if !unicode.IsPrint(ch) || (e.accept != nil && !e.accept(ch)) {
		return false
	}
	e.text = append(e.text[:e.cursor], append([]rune{ch}, e.text[e.cursor:]...)...)
	e.cursor++
	return true
}

// InsertString inserts s at the cursor, e.g. from a paste
func (e *LineEditor) InsertString(s string) {
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' {
			r = ' '
		}
		e.InsertChar(r)
	}
}

// DeleteChar deletes the character before the cursor (backspace)
func (e *LineEditor) DeleteChar() {
	if e.cursor > 0 {
		e.text = append(e.text[:e.cursor-1], e.text[e.cursor:]...)
		e.cursor--
	}
}

// DeleteCharForward deletes the character at the cursor (delete)
func (e *LineEditor) DeleteCharForward() {
	if e.cursor < len(e.text) {
		e.text = append(e.text[:e.cursor], e.text[e.cursor+1:]...)
	}
}

func (e *LineEditor) MoveCursorLeft() {
	if e.cursor > 0 {
		e.cursor--
	}
}

func (e *LineEditor) MoveCursorRight() {
	if e.cursor < len(e.text) {
		e.cursor++
	}
}

func (e *LineEditor) MoveCursorStart() {
	e.cursor = 0
}

func (e *LineEditor) MoveCursorEnd() {
	e.cursor = len(e.text)
}

// DeleteToEnd deletes from cursor to end (Ctrl+K)
func (e *LineEditor) DeleteToEnd() {
	e.text = e.text[:e.cursor]
}

// DeleteToStart deletes from start to cursor (Ctrl+U)
func (e *LineEditor) DeleteToStart() {
	e.text = append([]rune{}, e.text[e.cursor:]...)
	e.cursor = 0
}

// DeleteWord deletes the word before cursor (Ctrl+W)
func (e *LineEditor) DeleteWord() {
	start := e.wordStartBefore(e.cursor)
	e.text = append(e.text[:start], e.text[e.cursor:]...)
	e.cursor = start
}

// DeleteWordForward deletes the word after cursor (Alt+D)
func (e *LineEditor) DeleteWordForward() {
	end := e.wordEndAfter(e.cursor)
	e.text = append(e.text[:e.cursor], e.text[end:]...)
}

// MoveCursorWordForward moves past the next word (Alt+F)
func (e *LineEditor) MoveCursorWordForward() {
	e.cursor = e.wordEndAfter(e.cursor)
}

// MoveCursorWordBackward moves to the start of the previous word (Alt+B)
func (e *LineEditor) MoveCursorWordBackward() {
	e.cursor = e.wordStartBefore(e.cursor)
}

// Words are separated by spaces and the link separators
func isWordBreak(r rune) bool {
	return r == ' ' || r == ',' || r == ';'
}

func (e *LineEditor) wordStartBefore(pos int) int {
	for pos > 0 && isWordBreak(e.text[pos-1]) {
		pos--
	}
	for pos > 0 && !isWordBreak(e.text[pos-1]) {
		pos--
	}
	return pos
}

func (e *LineEditor) wordEndAfter(pos int) int {
	for pos < len(e.text) && isWordBreak(e.text[pos]) {
		pos++
	}
	for pos < len(e.text) && !isWordBreak(e.text[pos]) {
		pos++
	}
	return pos
}

// HandleKey applies an editing key. It reports whether the key was consumed.
// Enter and Escape are left to the caller.
func (e *LineEditor) HandleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		e.DeleteChar()
	case tcell.KeyDelete, tcell.KeyCtrlD:
		e.DeleteCharForward()
	case tcell.KeyLeft, tcell.KeyCtrlB:
		e.MoveCursorLeft()
	case tcell.KeyRight, tcell.KeyCtrlF:
		e.MoveCursorRight()
	case tcell.KeyHome, tcell.KeyCtrlA:
		e.MoveCursorStart()
	case tcell.KeyEnd, tcell.KeyCtrlE:
		e.MoveCursorEnd()
	case tcell.KeyCtrlK:
		e.DeleteToEnd()
	case tcell.KeyCtrlU:
		e.DeleteToStart()
	case tcell.KeyCtrlW:
		e.DeleteWord()
	case tcell.KeyRune:
		if ev.Modifiers()&tcell.ModAlt != 0 {
			switch ev.Rune() {
			case 'f', 'F':
				e.MoveCursorWordForward()
			case 'b', 'B':
				e.MoveCursorWordBackward()
			case 'd', 'D':
				e.DeleteWordForward()
			default:
				return false
			}
			return true
		}
		e.InsertChar(ev.Rune())
	default:
		return false
	}
	return true
}

// Draw renders the editor into width cells at (x, y), scrolling horizontally
// to keep the cursor visible. The cursor is drawn in reverse when focused.
func (e *LineEditor) Draw(s tcell.Screen, x, y, width int, style tcell.Style, focused bool) {
	if width <= 0 {
		return
	}
	for i := 0; i < width; i++ {
		s.SetContent(x+i, y, ' ', nil, style)
	}

	// Find the first visible rune so that the cursor fits
	start := 0
	for runewidth.StringWidth(string(e.text[start:e.cursor])) >= width {
		start++
	}

	col := 0
	for i := start; i <= len(e.text); i++ {
		r := ' '
		if i < len(e.text) {
			r = e.text[i]
		} else if !focused {
			break
		}
		rw := max(runewidth.RuneWidth(r), 1)
		if col+rw > width {
			break
		}
		cellStyle := style
		if focused && i == e.cursor {
			cellStyle = style.Reverse(true)
		}
		s.SetContent(x+col, y, r, nil, cellStyle)
		col += rw
	}
}
