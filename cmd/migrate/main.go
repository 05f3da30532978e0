package main

import (
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/config"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/db"
)

// migrate brings the configured database schema up to date and exits.
func main() {
	_ = godotenv.Load()

	l, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
	logger := l.Sugar()
	defer func() {
		_ = logger.Sync()
	}()

	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalw("load config", "err", err)
	}

	gdb, err := db.NewGormClient(cfg)
	if err != nil {
		logger.Fatalw("migrate database", "driver", cfg.DBDriver, "err", err)
	}

	tables, err := gdb.Migrator().GetTables()
	if err != nil {
		logger.Fatalw("list tables", "err", err)
	}
	logger.Infow("database is up to date", "driver", cfg.DBDriver, "tables", tables)
}
