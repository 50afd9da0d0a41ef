package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/plantops/forgeml/internal/server"
	"github.com/plantops/forgeml/pkg/log"
	"github.com/plantops/forgeml/storage"
)

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "YAML configuration file")
		addr       = fs.String("addr", "", "listen address override")
		level      = fs.String("log-level", "", "log level override")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, closer, err := setup(*configPath, *level)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return err
	}
	defer closer.Close()
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	logger := log.GetLoggerWithName("cli")

	store, err := storage.OpenSQLite(cfg.Storage.Path)
	if err != nil {
		logger.Error("open storage", err)
		return err
	}
	defer store.Close()

	srv, err := server.New(cfg, store)
	if err != nil {
		logger.Error("create server", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("server stopped", err)
		return err
	}
	return nil
}
