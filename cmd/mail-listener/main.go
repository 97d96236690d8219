package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tripvoucher/internal/config"
	"tripvoucher/internal/listener"
	"tripvoucher/internal/logging"
	"tripvoucher/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)
	log := logging.New(cfg.LogLevel, cfg.LogFile)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	svc := listener.NewService(db, cfg, log)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info("mail listener started", "provider", cfg.MailListenerProvider, "interval_sec", cfg.MailListenerIntervalSec)
	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
