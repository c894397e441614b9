package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rfp-insight/internal/pipeline"
	"github.com/sells-group/rfp-insight/internal/store"
	anthropicpkg "github.com/sells-group/rfp-insight/pkg/anthropic"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "rfp-insight.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initEngine() (anthropicpkg.Client, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic API key is required (RFP_ANTHROPIC_KEY)")
	}
	client := anthropicpkg.NewClient(cfg.Anthropic.Key)
	if cfg.Anthropic.RatePerSecond > 0 {
		client = anthropicpkg.NewRateLimited(client, cfg.Anthropic.RatePerSecond, cfg.Anthropic.RateBurst)
	}
	return client, nil
}

// initPipeline opens the store, runs migrations, and wires the pipeline.
// The caller owns closing the returned store.
func initPipeline(ctx context.Context) (*pipeline.Pipeline, store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, nil, eris.Wrap(err, "migrate store")
	}

	engine, err := initEngine()
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	return pipeline.New(st, engine, cfg), st, nil
}
