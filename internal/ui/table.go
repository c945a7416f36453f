package ui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

// TableColumn defines a column in the table
type TableColumn struct {
	Title      string
	Width      int     // 0 means flexible width
	MinWidth   int     // Minimum width for flexible columns
	FlexWeight float64 // Weight for distributing available space
	Align      Alignment
}

// Alignment specifies text alignment within a cell
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

// TableRow represents a single row of data
type TableRow interface {
	// GetCell returns the content for a specific column index
	GetCell(columnIndex int) string
	// GetCellStyle returns the style for a specific cell (can return nil for default)
	GetCellStyle(columnIndex int, selected bool) *tcell.Style
	// GetHighlightPositions returns rune positions to highlight in a cell
	GetHighlightPositions(columnIndex int) []int
}

// Table is a scrollable list of rows with a header
type Table struct {
	columns      []TableColumn
	rows         []TableRow
	selectedIdx  int
	scrollOffset int

	x, y          int
	width, height int

	selectionIndicator string

	headerStyle    tcell.Style
	defaultStyle   tcell.Style
	selectedStyle  tcell.Style
	highlightStyle tcell.Style

	columnWidths []int
}

// NewTable creates a new table widget
func NewTable() *Table {
	return &Table{
		selectionIndicator: "> ",
		headerStyle:        tcell.StyleDefault.Bold(true).Foreground(ColorHeader),
		defaultStyle:       tcell.StyleDefault,
		selectedStyle:      tcell.StyleDefault.Background(ColorSelection).Foreground(ColorBright),
		highlightStyle:     tcell.StyleDefault.Foreground(ColorHighlight).Bold(true),
	}
}

// SetColumns sets the column configuration
func (t *Table) SetColumns(columns []TableColumn) {
	t.columns = columns
	t.calculateColumnWidths()
}

// SetRows sets the data rows, keeping the selection in range
func (t *Table) SetRows(rows []TableRow) {
	t.rows = rows
	t.adjustSelection()
}

// SetBounds places the table on screen
func (t *Table) SetBounds(x, y, width, height int) {
	t.x, t.y = x, y
	if width != t.width || height != t.height {
		t.width, t.height = width, height
		t.calculateColumnWidths()
		t.ensureVisible()
	}
}

// GetSelectedIndex returns the currently selected row index
func (t *Table) GetSelectedIndex() int {
	return t.selectedIdx
}

// Select moves the selection to row i
func (t *Table) Select(i int) {
	t.selectedIdx = i
	t.adjustSelection()
}

// RowCount returns the number of rows
func (t *Table) RowCount() int {
	return len(t.rows)
}

// SelectNext moves selection to the next row
func (t *Table) SelectNext() bool {
	if t.selectedIdx < len(t.rows)-1 {
		t.selectedIdx++
		t.ensureVisible()
		return true
	}
	return false
}

// SelectPrevious moves selection to the previous row
func (t *Table) SelectPrevious() bool {
	if t.selectedIdx > 0 {
		t.selectedIdx--
		t.ensureVisible()
		return true
	}
	return false
}

// SelectFirst moves selection to the first row
func (t *Table) SelectFirst() {
	t.selectedIdx = 0
	t.scrollOffset = 0
}

// SelectLast moves selection to the last row
func (t *Table) SelectLast() {
	if len(t.rows) > 0 {
		t.selectedIdx = len(t.rows) - 1
		t.ensureVisible()
	}
}

// PageDown moves selection down by one page
func (t *Table) PageDown() bool {
	return t.moveBy(max(1, t.visibleHeight()-1))
}

// PageUp moves selection up by one page
func (t *Table) PageUp() bool {
	return t.moveBy(-max(1, t.visibleHeight()-1))
}

func (t *Table) moveBy(delta int) bool {
	if len(t.rows) == 0 {
		return false
	}
	next := min(max(t.selectedIdx+delta, 0), len(t.rows)-1)
	if next == t.selectedIdx {
		return false
	}
	t.selectedIdx = next
	t.ensureVisible()
	return true
}

// Draw renders the table to the screen
func (t *Table) Draw(s tcell.Screen) {
	if t.width <= 0 || t.height <= 0 {
		return
	}

	for y := 0; y < t.height; y++ {
		for x := 0; x < t.width; x++ {
			s.SetContent(t.x+x, t.y+y, ' ', nil, t.defaultStyle)
		}
	}

	t.drawHeader(s, t.y)

	visible := t.visibleHeight()
	for i := 0; i < visible && i+t.scrollOffset < len(t.rows); i++ {
		rowIdx := i + t.scrollOffset
		t.drawRow(s, t.y+1+i, t.rows[rowIdx], rowIdx == t.selectedIdx)
	}
}

// GetScrollInfo returns the visible range, 1-based, and the total
func (t *Table) GetScrollInfo() (firstVisible, lastVisible, total int) {
	total = len(t.rows)
	if total == 0 {
		return 0, 0, 0
	}
	firstVisible = t.scrollOffset + 1
	lastVisible = min(t.scrollOffset+t.visibleHeight(), total)
	return
}

func (t *Table) visibleHeight() int {
	return max(t.height-1, 0) // header takes one row
}

func (t *Table) ensureVisible() {
	visible := t.visibleHeight()
	if visible <= 0 {
		return
	}

	// Center the selection if possible
	target := t.selectedIdx - visible/2
	maxOffset := max(len(t.rows)-visible, 0)
	t.scrollOffset = min(max(target, 0), maxOffset)
}

func (t *Table) adjustSelection() {
	if len(t.rows) == 0 {
		t.selectedIdx = 0
		t.scrollOffset = 0
		return
	}
	t.selectedIdx = min(max(t.selectedIdx, 0), len(t.rows)-1)
	t.ensureVisible()
}

func (t *Table) calculateColumnWidths() {
	if len(t.columns) == 0 || t.width <= 0 {
		return
	}

	t.columnWidths = make([]int, len(t.columns))
	indicatorWidth := runewidth.StringWidth(t.selectionIndicator)

	fixed := 0
	totalWeight := 0.0
	for i, col := range t.columns {
		if col.Width > 0 {
			t.columnWidths[i] = col.Width
			fixed += col.Width
			continue
		}
		totalWeight += flexWeight(col)
	}

	padding := len(t.columns) - 1
	available := t.width - fixed - padding - indicatorWidth
	if available <= 0 || totalWeight == 0 {
		return
	}

	for i, col := range t.columns {
		if col.Width > 0 {
			continue
		}
		width := int(float64(available) * flexWeight(col) / totalWeight)
		if col.MinWidth > 0 && width < col.MinWidth {
			width = col.MinWidth
		}
		t.columnWidths[i] = width
	}
}

func flexWeight(col TableColumn) float64 {
	if col.FlexWeight > 0 {
		return col.FlexWeight
	}
	return 1.0
}

func (t *Table) drawHeader(s tcell.Screen, y int) {
	x := t.x + runewidth.StringWidth(t.selectionIndicator)
	for i, col := range t.columns {
		if i > 0 {
			x++
		}
		drawCell(s, x, y, t.columnWidths[i], col.Title, t.headerStyle, t.headerStyle, nil, col.Align)
		x += t.columnWidths[i]
	}
}

func (t *Table) drawRow(s tcell.Screen, y int, row TableRow, selected bool) {
	base := t.defaultStyle
	if selected {
		base = t.selectedStyle
		for x := 0; x < t.width; x++ {
			s.SetContent(t.x+x, y, ' ', nil, base)
		}
	}

	indicator := strings.Repeat(" ", runewidth.StringWidth(t.selectionIndicator))
	if selected {
		indicator = t.selectionIndicator
	}
	drawCell(s, t.x, y, len(indicator), indicator, base, base, nil, AlignLeft)

	highlight := t.highlightStyle
	if selected {
		highlight = base.Foreground(ColorBgDark).Background(ColorHighlight).Bold(true)
	}

	x := t.x + len(indicator)
	for i, col := range t.columns {
		if i > 0 {
			x++
		}
		style := base
		if cellStyle := row.GetCellStyle(i, selected); cellStyle != nil {
			style = *cellStyle
		}
		drawCell(s, x, y, t.columnWidths[i], row.GetCell(i), style, highlight, row.GetHighlightPositions(i), col.Align)
		x += t.columnWidths[i]
	}
}

// drawCell draws text into width cells, truncating with an ellipsis.
// Rune positions listed in highlights are drawn with highlightStyle.
func drawCell(s tcell.Screen, x, y, width int, text string, style, highlightStyle tcell.Style, highlights []int, align Alignment) {
	if width <= 0 {
		return
	}

	truncated := runewidth.StringWidth(text) > width
	limit := width
	if truncated && width > 3 {
		limit = width - 3
	}

	startX := x
	if !truncated && align == AlignRight {
		startX = x + width - runewidth.StringWidth(text)
	}

	marks := make(map[int]bool, len(highlights))
	for _, pos := range highlights {
		marks[pos] = true
	}

	col := 0
	for i, r := range []rune(text) {
		rw := runewidth.RuneWidth(r)
		if col+rw > limit {
			break
		}
		charStyle := style
		if marks[i] {
			charStyle = highlightStyle
		}
		s.SetContent(startX+col, y, r, nil, charStyle)
		col += rw
	}

	if truncated && width > 3 {
		for i := 0; i < 3; i++ {
			s.SetContent(startX+col+i, y, '.', nil, style)
		}
	}
}

// drawText draws text starting at x without clipping
func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) int {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x += runewidth.RuneWidth(r)
	}
	return x
}
