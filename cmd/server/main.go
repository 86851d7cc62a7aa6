package main

import (
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/kimhaegyeong/ai-webtoon/internal/assets"
	"github.com/kimhaegyeong/ai-webtoon/internal/config"
	"github.com/kimhaegyeong/ai-webtoon/internal/db"
	"github.com/kimhaegyeong/ai-webtoon/internal/gen"
	"github.com/kimhaegyeong/ai-webtoon/internal/server"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if err := config.LoadDotEnv(".env"); err != nil {
		logger.Warn().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()
	if cfg.LogPretty {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}

	conn, err := db.Open()
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	sqlDB, err := conn.DB()
	if err != nil {
		logger.Fatal().Err(err).Msg("database handle unavailable")
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeSeconds) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.DBConnMaxIdleTimeSeconds) * time.Second)

	story, err := gen.NewStoryGenerator(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("story generator setup failed")
	}
	images, err := gen.NewImageGenerator(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("image generator setup failed")
	}
	store, err := assets.NewMinioStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("object storage setup failed")
	}

	srv := server.New(server.Options{
		Store:  server.NewStore(conn),
		Config: cfg,
		Story:  story,
		Images: images,
		Assets: store,
		Logger: logger,
	})

	addr := ":8080"
	if env := os.Getenv("PORT"); env != "" {
		addr = ":" + env
	}
	logger.Info().Str("addr", addr).Msg("ai-webtoon server listening")
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
