package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/stemsi/examrunner/internal/config"
	"github.com/stemsi/examrunner/internal/database"
	"github.com/stemsi/examrunner/internal/logger"
	"github.com/stemsi/examrunner/internal/questionbank"
	"github.com/stemsi/examrunner/internal/validator"
)

func main() {
	var (
		file  string
		setID string
	)
	flag.StringVar(&file, "file", "", "Question set JSON file")
	flag.StringVar(&setID, "id", "", "Question set id (defaults to the file name)")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	validator.Setup()

	if file == "" {
		flag.Usage()
		os.Exit(2)
	}
	if setID == "" {
		setID = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		log.Fatal().Err(err).Str("file", file).Msg("Failed to read question file")
	}

	set, err := questionbank.Decode(raw)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to decode question set")
	}
	set.ID = setID

	if err := questionbank.Validate(set); err != nil {
		var invalid *questionbank.InvalidSetError
		if errors.As(err, &invalid) {
			for field, msg := range invalid.Fields {
				log.Error().Str("field", field).Msg(msg)
			}
		}
		log.Fatal().Err(err).Msg("Question set is invalid")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	if err := questionbank.Import(ctx, pool, set); err != nil {
		log.Fatal().Err(err).Msg("Import failed")
	}

	// A stale cached copy would otherwise be served until its TTL expires.
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, cached copy not invalidated")
	} else if rdb != nil {
		defer rdb.Close()
		cache := questionbank.NewCachedSource(questionbank.NewPostgresSource(pool), rdb, cfg.QuestionCacheTTL, log)
		if err := cache.Invalidate(ctx, setID); err != nil {
			log.Warn().Err(err).Msg("Failed to invalidate cached question set")
		}
	}

	log.Info().
		Str("set_id", setID).
		Str("title", set.Title).
		Int("questions", set.Len()).
		Msg("Question set imported")
}
