package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/igs-sky/1A2B-Game/internal/cache/cachelru"
	"github.com/igs-sky/1A2B-Game/internal/database"
	gamestateDb "github.com/igs-sky/1A2B-Game/internal/database/gamestate/database"
	"github.com/igs-sky/1A2B-Game/internal/logging"
	"github.com/igs-sky/1A2B-Game/internal/server"
	"github.com/igs-sky/1A2B-Game/internal/shutdown"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, done := shutdown.New()
	defer done()

	logger := logging.FromContext(ctx)
	if err := realMain(ctx); err != nil {
		logger.Fatalf("main.realMain: %v", err)
	}
}

func realMain(ctx context.Context) error {
	config := server.Config{}
	if err := envconfig.Process("", &config); err != nil {
		return fmt.Errorf("processing the config: %w", err)
	}

	logger := logging.NewLogger(config.Debug)
	ctx = logging.WithLogger(ctx, logger)

	db, err := database.NewFromEnv(ctx, &config.Db)
	if err != nil {
		return fmt.Errorf("new database from env: %w", err)
	}

	defer db.Close(ctx)

	stateCache, err := cachelru.NewLRU(config.CacheSize)
	if err != nil {
		return fmt.Errorf("can not create lru cache: %w", err)
	}

	store := gamestateDb.New(db, stateCache)
	manager := server.New(&config, store)

	if config.ProfPort != "" {
		go func() {
			if err := http.ListenAndServe(":"+config.ProfPort, nil); err != nil {
				logger.Errorf("pprof server: %v", err)
			}
		}()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return manager.Run(ctx)
	})

	return g.Wait()
}
