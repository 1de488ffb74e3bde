// @title Hifz school backend API
// @version 1.0
// @description Progress tracking for a Quran memorisation school: teachers, students, daily logs, adab quizzes and announcements.

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"context"
	"flag"
	"log"
	"path/filepath"

	"go.uber.org/zap"

	"hifz_backend/internal/app"
	"hifz_backend/internal/config"
	"hifz_backend/pkg/configwatcher"
	"hifz_backend/pkg/logger"
)

func main() {
	configDir := flag.String("config", "configs", "directory holding config.yaml")
	migrateOnly := flag.Bool("migrate-only", false, "migrate the cache tables and exit")
	migrate := flag.Bool("migrate", false, "migrate the cache tables on start, even in release mode")
	watch := flag.Bool("watch-config", true, "reload the school calendar when config.yaml changes")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg)

	if *migrateOnly {
		application.Close()
		log.Println("Migration finished, exiting")
		return
	}

	if *watch {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			path := filepath.Join(*configDir, "config.yaml")
			if err := configwatcher.WatchConfig(ctx, path, application.ApplyConfig); err != nil {
				logger.Log.Warn("Config watcher disabled", zap.Error(err))
			}
		}()
	}

	application.Run()
}
