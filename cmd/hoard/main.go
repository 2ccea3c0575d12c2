// Hoard - offline cache and sync for your saved links.
//
// Keeps a local, offline-capable copy of your saved links: save records,
// reader-mode snapshots, and preview images.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hoardlabs/hoard/internal/cli"
	"github.com/hoardlabs/hoard/internal/config"
	"github.com/hoardlabs/hoard/internal/db"
	"github.com/hoardlabs/hoard/internal/log"
	"github.com/hoardlabs/hoard/internal/telemetry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// Load config and open the database for the persistent tracking ID
	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}

	paths := config.GetPaths(cfg)
	if err := log.Init(paths.Logs); err == nil {
		defer func() { _ = log.Close() }()
	}

	database, err := db.New(db.DefaultConfig(paths.Database))
	if err != nil {
		os.Exit(1)
	}
	defer func() {
		_ = database.Close()
	}()

	telemetryClient := telemetry.New(database)
	defer telemetryClient.Close()

	if err := cli.Execute(ctx, telemetryClient); err != nil {
		os.Exit(1)
	}
}
