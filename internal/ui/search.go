package ui

import (
	"strings"
	"sync"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// Score threshold constants (based on raw fzf scores)
const (
	ScoreThresholdStrict     = 70 // Only high quality matches
	ScoreThresholdNormal     = 50 // Balanced
	ScoreThresholdPermissive = 30 // Include marginal matches
	ScoreThresholdNone       = 0  // Accept all matches (default)
)

var initAlgo sync.Once

// SearchState holds the query editor and the match settings
type SearchState struct {
	editor        *LineEditor
	caseSensitive bool
	minScore      int
	slab          *util.Slab
}

// MatchResult contains match score and positions
type MatchResult struct {
	Score     int
	Positions []int
}

// NewSearchState creates a new search state
func NewSearchState() *SearchState {
	initAlgo.Do(func() {
		algo.Init("default")
	})
	return &SearchState{
		editor:   NewLineEditor(),
		minScore: ScoreThresholdNone,
		slab:     util.MakeSlab(16384, 1024),
	}
}

// Query returns the current query
func (s *SearchState) Query() string {
	return s.editor.Text()
}

// Active reports whether a filter is in effect
func (s *SearchState) Active() bool {
	return strings.TrimSpace(s.editor.Text()) != ""
}

// Clear clears the query
func (s *SearchState) Clear() {
	s.editor.Clear()
}

// Editor returns the query editor
func (s *SearchState) Editor() *LineEditor {
	return s.editor
}

// CycleMinScore steps through the thresholds and returns a description
// of the new mode.
func (s *SearchState) CycleMinScore() string {
	switch s.minScore {
	case ScoreThresholdNone:
		s.minScore = ScoreThresholdPermissive
		return "Search: Permissive mode (include marginal matches)"
	case ScoreThresholdPermissive:
		s.minScore = ScoreThresholdNormal
		return "Search: Normal mode (balanced)"
	case ScoreThresholdNormal:
		s.minScore = ScoreThresholdStrict
		return "Search: Strict mode (high quality matches only)"
	default:
		s.minScore = ScoreThresholdNone
		return "Search: No filtering (all matches)"
	}
}

// matchWithPositions calculates match score and positions for highlighting
func (s *SearchState) matchWithPositions(text string) MatchResult {
	query := strings.TrimSpace(s.editor.Text())
	if query == "" {
		return MatchResult{}
	}

	searchText, pattern := text, query
	if !s.caseSensitive {
		searchText = strings.ToLower(text)
		pattern = strings.ToLower(query)
	}

	chars := util.ToChars([]byte(searchText))
	result, positions := algo.FuzzyMatchV2(s.caseSensitive, false, true, &chars, []rune(pattern), true, s.slab)
	if result.Start < 0 {
		return MatchResult{Score: -1}
	}

	var matched []int
	if positions != nil {
		matched = make([]int, len(*positions))
		copy(matched, *positions)
	}
	return MatchResult{Score: result.Score, Positions: matched}
}

func (s *SearchState) accepts(r MatchResult) bool {
	return r.Score >= 0 && (s.minScore == 0 || r.Score >= s.minScore)
}

// MatchEntry matches the query against an entry's title, then its URL.
// field reports which one matched.
func (s *SearchState) MatchEntry(title, url string) (ok bool, result MatchResult, field string) {
	if !s.Active() {
		return true, MatchResult{}, ""
	}

	if title != "" {
		if r := s.matchWithPositions(title); s.accepts(r) {
			return true, r, "title"
		}
	}
	if r := s.matchWithPositions(url); s.accepts(r) {
		return true, r, "url"
	}
	return false, MatchResult{Score: -1}, ""
}
