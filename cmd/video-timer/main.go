package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/csams/video-timer/internal/config"
	"github.com/csams/video-timer/internal/models"
	"github.com/urfave/cli"
)

var version = "dev"

var (
	configDir string
	logFile   string

	globalFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "config-dir",
			Usage:       "directory holding settings.yaml, the saved queue and the log",
			EnvVar:      config.EnvConfigDir,
			Destination: &configDir,
		},
		cli.StringFlag{
			Name:        "log-file",
			Usage:       "write logs here instead of <config-dir>/" + config.DefaultLogFile,
			Destination: &logFile,
		},
	}
)

func newApp(out io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = config.AppName
	app.HelpName = config.AppName
	app.Usage = "play a queue of videos in fixed-length sessions"
	app.UsageText = "video-timer [global options] [command] [arguments...]"
	app.Version = version
	app.Writer = out
	app.Flags = globalFlags
	app.Action = run
	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "open the timer (default)",
			Action: run,
		},
		{
			Name:      "resolve",
			Aliases:   []string{"r"},
			Usage:     "print the queue entries a list of links would produce",
			ArgsUsage: "LINK...",
			Flags:     resolveFlags,
			Action:    resolveLinks,
		},
		{
			Name:   "show",
			Usage:  "print the saved queue",
			Action: show,
		},
		{
			Name:   "reset",
			Usage:  "delete the saved queue",
			Action: reset,
		},
	}
	return app
}

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", config.AppName, err)
		os.Exit(1)
	}
}

// resolveConfigDir returns --config-dir or the default location
func resolveConfigDir() (string, error) {
	if configDir != "" {
		return configDir, nil
	}
	return config.ConfigDir()
}

// loadSettings never fails: broken settings are logged and replaced by defaults
func loadSettings(dir string) *config.Settings {
	settings, err := config.LoadSettings(dir)
	if err != nil {
		log.Printf("Config: %v, using defaults", err)
	}
	if settings == nil {
		settings = config.DefaultSettings()
	}
	return settings
}

// loadQueue rehydrates the saved queue, or starts an empty one
func loadQueue(store *models.SnapshotStore, settings *config.Settings) *models.Queue {
	if snap, ok := store.Load(); ok {
		return models.QueueFromSnapshot(snap, settings.DefaultSessionMinutes)
	}
	return models.NewQueue(settings.DefaultSessionMinutes)
}

// redirectLog sends the standard logger to a file; the TUI owns the terminal
func redirectLog(dir string) (func(), error) {
	path := logFile
	if path == "" {
		path = filepath.Join(dir, config.DefaultLogFile)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	log.SetOutput(f)
	return func() {
		log.SetOutput(os.Stderr)
		f.Close()
	}, nil
}
