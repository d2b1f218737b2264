package main

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/youruser/framegen/internal/api"
	"github.com/youruser/framegen/internal/config"
	"github.com/youruser/framegen/internal/share"
	"github.com/youruser/framegen/internal/storage"
)

func main() {
	log.Info().Msg("starting framegen...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("could not load config")
	}

	switch cfg.Server.LogLevel {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	h := api.NewHandler(cfg, storage.New(cfg.Output.Dir), share.NewClient(cfg.Share.UploadURL))

	r := gin.Default()
	api.RegisterRoutes(r, h)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Server.Port
	}
	log.Info().Str("port", port).Int("slots", len(cfg.Layout.Slots)).Msg("server listening")
	if err := r.Run(":" + port); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server exited")
	}
}
