// Package resolver turns pasted text into queue entries.
//
// Input is split on ',' or ';'. Each segment that looks like a YouTube link
// (watch, youtu.be, embed, shorts or the legacy /v/ form) yields an entry with
// its 11-character video id; anything else is silently dropped. Titles are
// looked up concurrently and best-effort: a failed lookup never drops an entry.
package resolver

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/csams/video-timer/internal/models"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds concurrent title lookups
const DefaultConcurrency = 8

var (
	videoIDPattern = regexp.MustCompile(`(?:https?://)?(?:www\.|m\.)?youtu(?:\.be|be\.com)/(?:watch\?v=|embed/|v/|shorts/)?([\w-]{11})`)
	// watch URLs where v is not the first query parameter
	watchParamPattern = regexp.MustCompile(`(?:https?://)?(?:www\.|m\.)?youtube\.com/watch\?(?:[^#\s]*&)?v=([\w-]{11})`)
)

// TitleLookup fetches a human readable title for a video URL
type TitleLookup interface {
	Title(ctx context.Context, url string) (string, error)
}

// Resolver parses raw input and attaches titles
type Resolver struct {
	titles      TitleLookup
	concurrency int
}

// New creates a resolver. A nil lookup resolves without titles.
func New(titles TitleLookup, concurrency int) *Resolver {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Resolver{
		titles:      titles,
		concurrency: concurrency,
	}
}

// ExtractID returns the 11-character video id, or "" if url is not a recognized link
func ExtractID(url string) string {
	if m := watchParamPattern.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	if m := videoIDPattern.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return ""
}

// SplitInput splits raw text on ',' or ';' and drops empty segments
func SplitInput(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';'
	})

	segments := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			segments = append(segments, f)
		}
	}
	return segments
}

// ParseWithoutTitles returns the recognized entries in input order. Duplicates are kept.
func ParseWithoutTitles(raw string) []models.QueueEntry {
	segments := SplitInput(raw)
	result := make([]models.QueueEntry, 0, len(segments))
	for _, s := range segments {
		id := ExtractID(s)
		if id == "" {
			continue
		}
		result = append(result, models.QueueEntry{
			SourceURL: s,
			ID:        id,
		})
	}
	return result
}

// Resolve parses raw and looks up titles. It never fails: if the batch as a
// whole cannot complete, entries are returned without titles.
func (r *Resolver) Resolve(ctx context.Context, raw string) []models.QueueEntry {
	parsed := ParseWithoutTitles(raw)
	if r.titles == nil || len(parsed) == 0 {
		return parsed
	}

	resolved, err := r.lookupAll(ctx, parsed)
	if err != nil {
		log.Printf("Resolver: title lookup failed, loading without titles: %v", err)
		return ParseWithoutTitles(raw)
	}
	return resolved
}

func (r *Resolver) lookupAll(ctx context.Context, parsed []models.QueueEntry) ([]models.QueueEntry, error) {
	results := make([]models.QueueEntry, len(parsed))
	copy(results, parsed)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i := range results {
		i := i // per-iteration copy; go 1.21 shares loop variables
		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("title lookup panicked: %v", p)
				}
			}()

			if err := ctx.Err(); err != nil {
				return err
			}

			title, err := r.titles.Title(ctx, results[i].SourceURL)
			if err != nil {
				// A cancelled batch is systemic; anything else only loses this title
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Printf("Resolver: no title for %s: %v", results[i].SourceURL, err)
				return nil
			}
			results[i].Title = strings.TrimSpace(title)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
