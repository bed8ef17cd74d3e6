package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/vincentbai/pixel-bridge/internal/bus"
	"github.com/vincentbai/pixel-bridge/internal/config"
	"github.com/vincentbai/pixel-bridge/internal/database"
	"github.com/vincentbai/pixel-bridge/internal/gate"
	"github.com/vincentbai/pixel-bridge/internal/loader"
	"github.com/vincentbai/pixel-bridge/internal/readiness"
	"github.com/vincentbai/pixel-bridge/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	databasePath := cfg.DatabasePath
	if databasePath == "" {
		applicationDirectory, err := config.ApplicationDirectory()
		if err != nil {
			log.Fatal(err)
		}
		databasePath = filepath.Join(applicationDirectory, "tracked.db")
	}
	if err := os.MkdirAll(filepath.Dir(databasePath), 0o755); err != nil {
		log.Fatal("Failed to create application directory:", err)
	}

	tracking, err := config.LoadTracking(cfg.TrackingConfig)
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.NewDatabase(databasePath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	cacheBuster := cfg.CacheBuster
	if cacheBuster == "" {
		cacheBuster = loader.NewCacheBuster()
	}

	eventBus := bus.New()
	readySignal := readiness.New()
	document := loader.NewDocument()
	bridge := gate.NewBridge(document, eventBus, readySignal, db, loader.ScriptURL(cfg.ScriptPath, cacheBuster))
	g := bridge.Initialize(tracking)

	srv := server.NewServer(db, eventBus, readySignal, document, g, cfg.Address)
	if err := srv.Start(); err != nil {
		log.Print(err)
		db.Close()
		os.Exit(1)
	}
}
