// Command voxstore runs the conversational voice service for the
// online store: one WebSocket endpoint for voice sessions, one for
// transcript observers, and a health check over the order snapshot.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/voxstore/voxstore/internal/config"
	"github.com/voxstore/voxstore/internal/log"
	"github.com/voxstore/voxstore/pkg/hub"
	"github.com/voxstore/voxstore/pkg/store"
	"github.com/voxstore/voxstore/pkg/web"
)

func main() {
	// Local development loads settings from .env; missing file is fine.
	godotenv.Load()

	cfg := config.FromEnv()
	log.Init(cfg.LogLevel)

	if err := cfg.RequireAPIKey(); err != nil {
		log.Warn("GROQ_API_KEY not set, voice sessions will be refused")
	}

	st, err := store.Load(cfg.DataPath)
	if err != nil {
		// The service still serves /health so operators can see the
		// problem; voice sessions answer with empty order data.
		log.Error("order snapshot unavailable", "path", cfg.DataPath, "error", err)
	} else {
		log.Info("order snapshot loaded", "path", cfg.DataPath)
	}

	srv := web.NewServer(cfg, st, hub.New())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
		if err := srv.Shutdown(); err != nil {
			log.Error("shutdown failed", "error", err)
			os.Exit(1)
		}
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}
}
