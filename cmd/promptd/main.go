package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/nhle/fusion-prompts/internal/app"
	"github.com/nhle/fusion-prompts/internal/logging"
	"github.com/nhle/fusion-prompts/internal/model"
)

func main() {
	var (
		cfgPath string
		reset   bool
	)
	flag.StringVar(&cfgPath, "config", model.DefaultConfigPath(), "path to config yaml")
	flag.BoolVar(&reset, "reset", false, "delete all prompts, responses and the masking secret before starting")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := model.LoadConfig(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(storeDir(cfg.Store.Path), 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	log := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Console)

	a, err := app.New(cfg, log, app.Options{Out: os.Stdout, Reset: reset})
	if err != nil {
		log.Fatal().Err(err).Msg("building app")
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		if err := a.Stop(stopCtx); err != nil {
			log.Error().Err(err).Msg("stopping")
		}
	}()

	if err := a.Start(ctx); err != nil {
		log.Error().Err(err).Msg("starting")
		return
	}

	events := make(chan model.InteractionEvent, 16)
	go func() {
		defer close(events)
		if err := a.Feed(ctx, os.Stdin, events); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("reading commands")
		}
	}()

	if err := a.Run(ctx, events); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("running")
	}
}

// storeDir returns the directory holding the store file, or "." for an
// in-memory store.
func storeDir(path string) string {
	if path == ":memory:" {
		return "."
	}
	return filepath.Dir(path)
}
