package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/csams/video-timer/internal/models"
	"github.com/csams/video-timer/internal/resolver"
	"github.com/urfave/cli"
)

var errNoLinks = errors.New("no links given")

var (
	skipTitles bool

	resolveFlags = []cli.Flag{
		cli.BoolFlag{
			Name:        "no-titles, n",
			Usage:       "skip the title lookup",
			Destination: &skipTitles,
		},
	}
)

func resolveLinks(ctx *cli.Context) error {
	if !ctx.Args().Present() {
		return errNoLinks
	}
	raw := strings.Join(ctx.Args(), ",")

	var entries []models.QueueEntry
	if skipTitles {
		entries = resolver.ParseWithoutTitles(raw)
	} else {
		dir, err := resolveConfigDir()
		if err != nil {
			return err
		}
		entries = newResolver(loadSettings(dir)).Resolve(context.Background(), raw)
	}

	w := ctx.App.Writer
	for i, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, e.ID, e.Title, e.SourceURL)
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No video links found")
	}
	return nil
}

func show(ctx *cli.Context) error {
	dir, err := resolveConfigDir()
	if err != nil {
		return err
	}
	store := models.NewSnapshotStore(dir)

	w := ctx.App.Writer
	snap, ok := store.Load()
	if !ok {
		fmt.Fprintf(w, "No saved queue at %s\n", store.Path())
		return nil
	}

	st := models.QueueFromSnapshot(snap, loadSettings(dir).DefaultSessionMinutes).State()
	fmt.Fprintf(w, "Duration: %d min  Start: %d min  Videos: %d\n",
		st.SessionDurationMinutes, st.OffsetMinutes, len(st.Entries))
	for i, e := range st.Entries {
		marker := " "
		if i == st.ActiveIndex {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %d\t%s\t%s\n", marker, i+1, e.ID, e.DisplayName())
	}
	return nil
}

func reset(ctx *cli.Context) error {
	dir, err := resolveConfigDir()
	if err != nil {
		return err
	}
	store := models.NewSnapshotStore(dir)
	if err := store.Remove(); err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "Removed %s\n", store.Path())
	return nil
}
