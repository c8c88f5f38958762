package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/gauntlet/internal/orchestrator"
	"github.com/sells-group/gauntlet/internal/store"
	"github.com/sells-group/gauntlet/pkg/gateway"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.SQLitePath
		if path == "" {
			path = "gauntlet.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initGateway returns nil when no API key is configured; the
// orchestrator treats a nil client as a fatal credential error.
func initGateway() gateway.Client {
	if cfg.Gateway.Key == "" {
		return nil
	}
	return gateway.NewClient(cfg.Gateway.Key,
		gateway.WithBaseURL(cfg.Gateway.BaseURL),
		gateway.WithTimeout(time.Duration(cfg.Gateway.TimeoutSecs)*time.Second),
	)
}

func initOrchestrator(st store.Store) *orchestrator.Orchestrator {
	return orchestrator.New(st, initGateway(), orchestrator.Config{
		Spacing:          time.Duration(cfg.Orchestrator.SpacingSecs) * time.Second,
		Temperature:      cfg.Orchestrator.Temperature,
		MaxTokensCeiling: cfg.Orchestrator.MaxTokens,
		MaxConcurrent:    cfg.Orchestrator.MaxConcurrent,
	})
}
