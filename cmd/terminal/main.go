package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/gravitas-games/cachegrid/internal/config"
	"github.com/gravitas-games/cachegrid/internal/play"
	"github.com/gravitas-games/cachegrid/internal/store"
	"github.com/gravitas-games/cachegrid/internal/store/sqlitestore"
	"github.com/gravitas-games/cachegrid/internal/tui"
	"github.com/gravitas-games/cachegrid/pkg/logger"
	"github.com/gravitas-games/cachegrid/pkg/models"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to server.yaml (optional)")
	playerName := flag.String("player", "local", "player name; each name keeps its own world state")
	sound := flag.Bool("sound", false, "play a chime on take and place")
	flag.Parse()

	if err := run(*configPath, *playerName, *sound); err != nil {
		fmt.Fprintf(os.Stderr, "cachegrid: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, playerName string, sound bool) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	player, err := models.NewAnonymous(playerName)
	if err != nil {
		return err
	}

	// The screen owns stdout, so logs go next to the database.
	logOut, closeLog := openLog(filepath.Join(filepath.Dir(cfg.Storage.SQLitePath), "terminal.log"))
	defer closeLog()
	logger.Init(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: logOut})

	db, err := sqlitestore.Open(cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}
	defer db.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to init screen: %w", err)
	}
	defer screen.Fini()

	var opts []tui.Option
	if sound {
		if err := speaker.Init(tui.SampleRate, tui.SampleRate.N(time.Second/10)); err != nil {
			// Non-fatal, the game runs without sound
			logger.Log.WithError(err).Warn("Audio initialization failed")
		} else {
			defer speaker.Close()
			opts = append(opts, tui.WithChime(tui.Chime(func(s beep.Streamer) { speaker.Play(s) })))
		}
	}

	app := tui.New(screen, opts...)
	game := play.New(cfg.Game, store.New(db.Backend(player.StoreNamespace())), app, nil)
	app.Attach(game)

	ctx := context.Background()
	if err := game.Start(ctx); err != nil {
		return err
	}
	return app.Run(ctx)
}

func openLog(path string) (io.Writer, func()) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return io.Discard, func() {}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return io.Discard, func() {}
	}
	return f, func() { f.Close() }
}
