package main

import (
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/auth"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/config"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/db"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/metadata"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/proto"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/repository"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/service"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/transport"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded")
	}

	fx.New(
		fx.Provide(
			config.NewConfig,
			NewLogger,
			db.NewGormClient,
			repository.NewStore,
			auth.NewTokenManager,
			metadata.NewFetcher,
			service.NewGeneral,
			service.NewBookmarks,
			service.NewFolders,
			service.NewTags,
		),
		transport.Module,
		proto.Module,
	).Run()
}

func NewLogger(lc fx.Lifecycle, cfg *config.Config) (*zap.SugaredLogger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if cfg.IsProduction() {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}

	lc.Append(fx.StopHook(func() {
		_ = l.Sync()
	}))
	return l.Sugar(), nil
}
