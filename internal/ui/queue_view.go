package ui

import (
	"fmt"
	"time"

	"github.com/csams/video-timer/internal/models"
	"github.com/gdamore/tcell/v2"
)

// QueueView lists the queue entries, filtered by the search state.
// Rows map back to queue indices through indices.
type QueueView struct {
	table   *Table
	search  *SearchState
	state   models.QueueState
	indices []int
}

type QueueTableRow struct {
	entry     models.QueueEntry
	position  int
	active    bool
	playing   bool
	highlight []int
}

func NewQueueView(search *SearchState) *QueueView {
	v := &QueueView{
		table:  NewTable(),
		search: search,
	}

	columns := []TableColumn{
		{Title: "#", Width: 6, Align: AlignLeft},
		{Title: "Title", MinWidth: 20, FlexWeight: 1, Align: AlignLeft},
		{Title: "Length", Width: 8, Align: AlignRight},
	}
	v.table.SetColumns(columns)

	return v
}

// SetState replaces the displayed queue
func (v *QueueView) SetState(st models.QueueState) {
	v.state = st
	v.Refresh()
}

// Refresh rebuilds the rows from the current state and search query,
// keeping the selected queue entry selected when it is still visible.
func (v *QueueView) Refresh() {
	selected := v.GetSelectedIndex()

	v.indices = v.indices[:0]
	rows := make([]TableRow, 0, len(v.state.Entries))
	for i, entry := range v.state.Entries {
		ok, match, field := v.search.MatchEntry(entry.Title, entry.SourceURL)
		if !ok {
			continue
		}
		row := &QueueTableRow{
			entry:    entry,
			position: i + 1,
			active:   i == v.state.ActiveIndex,
			playing:  v.state.IsPlaying,
		}
		// Positions only line up with the title column
		if field == "title" || (field == "url" && entry.Title == "") {
			row.highlight = match.Positions
		}
		v.indices = append(v.indices, i)
		rows = append(rows, row)
	}
	v.table.SetRows(rows)

	if selected >= 0 {
		v.SelectEntry(selected)
	}
}

// SelectEntry selects the row showing queue index i, if visible
func (v *QueueView) SelectEntry(i int) {
	for row, idx := range v.indices {
		if idx == i {
			v.table.Select(row)
			return
		}
	}
}

// GetSelectedIndex returns the queue index of the selected row, or -1
func (v *QueueView) GetSelectedIndex() int {
	row := v.table.GetSelectedIndex()
	if row < 0 || row >= len(v.indices) {
		return -1
	}
	return v.indices[row]
}

// VisibleCount returns the number of rows after filtering
func (v *QueueView) VisibleCount() int {
	return len(v.indices)
}

func (v *QueueView) Draw(s tcell.Screen, x, y, width, height int) {
	v.table.SetBounds(x, y, width, height)
	v.table.Draw(s)
}

func (v *QueueView) HandleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'j':
			v.table.SelectNext()
			return true
		case 'k':
			v.table.SelectPrevious()
			return true
		case 'g':
			v.table.SelectFirst()
			return true
		case 'G':
			v.table.SelectLast()
			return true
		}
	case tcell.KeyDown:
		v.table.SelectNext()
		return true
	case tcell.KeyUp:
		v.table.SelectPrevious()
		return true
	case tcell.KeyCtrlD, tcell.KeyPgDn:
		v.table.PageDown()
		return true
	case tcell.KeyCtrlU, tcell.KeyPgUp:
		v.table.PageUp()
		return true
	}

	return false
}

// QueueTableRow implementation

func (r *QueueTableRow) GetCell(columnIndex int) string {
	switch columnIndex {
	case 0:
		status := fmt.Sprintf("%d", r.position)
		if r.active {
			if r.playing {
				status += " ▶"
			} else {
				status += " •"
			}
		}
		return status
	case 1:
		return r.entry.DisplayName()
	case 2:
		if r.entry.Length <= 0 {
			return "--:--"
		}
		return formatTime(r.entry.Length)
	}
	return ""
}

func (r *QueueTableRow) GetCellStyle(columnIndex int, selected bool) *tcell.Style {
	if !r.active {
		return nil
	}
	style := tcell.StyleDefault.Background(ColorActive).Foreground(ColorIdle)
	if r.playing {
		style = style.Foreground(ColorPlaying)
	}
	if selected {
		style = style.Background(ColorSelection).Bold(true)
	}
	return &style
}

func (r *QueueTableRow) GetHighlightPositions(columnIndex int) []int {
	if columnIndex == 1 {
		return r.highlight
	}
	return nil
}

// formatTime renders d as m:ss or h:mm:ss
func formatTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second) / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
