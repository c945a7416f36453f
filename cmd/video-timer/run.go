package main

import (
	"log"

	"github.com/csams/video-timer/internal/config"
	"github.com/csams/video-timer/internal/models"
	"github.com/csams/video-timer/internal/playback"
	"github.com/csams/video-timer/internal/player"
	"github.com/csams/video-timer/internal/resolver"
	"github.com/csams/video-timer/internal/ui"
	"github.com/urfave/cli"
)

func run(ctx *cli.Context) error {
	dir, err := resolveConfigDir()
	if err != nil {
		return err
	}

	closeLog, err := redirectLog(dir)
	if err != nil {
		return err
	}
	defer closeLog()

	settings := loadSettings(dir)
	log.Printf("Starting %s %s (config: %s)", config.AppName, version, dir)

	store := models.NewSnapshotStore(dir)
	queue := loadQueue(store, settings)

	mpv := player.New(player.Options{
		Path:    settings.MPVPath,
		NoVideo: settings.NoVideo,
	})
	ctrl := playback.New(queue,
		playback.WithPlayer(mpv),
		playback.WithResolver(newResolver(settings)),
		playback.WithPersister(store),
	)

	return ui.NewApp(ctrl, mpv).Run()
}

func newResolver(settings *config.Settings) *resolver.Resolver {
	titles := resolver.NewOEmbedClient(settings.OEmbedEndpoint, settings.Timeout())
	return resolver.New(titles, settings.LookupConcurrency)
}
