package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/pai-planner/internal/advisor"
	"github.com/p-n-ai/pai-planner/internal/catalog"
	"github.com/p-n-ai/pai-planner/internal/httpapi"
	"github.com/p-n-ai/pai-planner/internal/plan"
	"github.com/p-n-ai/pai-planner/internal/planner"
	"github.com/p-n-ai/pai-planner/internal/platform/cache"
	"github.com/p-n-ai/pai-planner/internal/platform/config"
	"github.com/p-n-ai/pai-planner/internal/platform/database"
	"github.com/p-n-ai/pai-planner/internal/watch"
)

// app is the wired server. Close releases resources in reverse order.
type app struct {
	handler   http.Handler
	service   *planner.Service
	refresher *watch.Refresher
	closers   []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	ready := false
	defer func() {
		if !ready {
			a.Close()
		}
	}()
	checks := map[string]httpapi.HealthCheck{}

	loader, err := catalog.NewLoader(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	checks["catalog"] = func(ctx context.Context) error {
		_, err := loader.FetchSubjects(ctx)
		return err
	}

	repo, events, err := a.openStore(ctx, cfg.Database, checks)
	if err != nil {
		return nil, err
	}

	if cfg.Cache.Enabled {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return nil, fmt.Errorf("connect cache: %w", err)
		}
		a.closers = append(a.closers, func() { _ = c.Close() })
		checks["cache"] = c.HealthCheck
		repo = planner.NewCachedRepository(repo, c.Client, cfg.Cache.TTL)
	}

	policy := newPolicy(cfg, checks)

	hub := watch.NewHub(nil)
	a.service = planner.NewService(planner.ServiceConfig{
		Engine:     plan.NewEngine(plan.EngineConfig{Policy: policy, DefaultSpanDays: cfg.Planner.DefaultSpanDays}),
		Catalog:    loader,
		Exams:      loader,
		Repository: repo,
		Events:     events,
		Notifier:   hub,
	})

	a.refresher, err = watch.NewRefresher(hub, a.service, cfg.Planner.RefreshSchedule)
	if err != nil {
		return nil, err
	}

	a.handler = httpapi.New(httpapi.Config{
		Service: a.service,
		Hub:     hub,
		Checks:  checks,
	})
	ready = true
	return a, nil
}

func (a *app) openStore(ctx context.Context, cfg config.DatabaseConfig, checks map[string]httpapi.HealthCheck) (planner.Repository, planner.EventLogger, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		if err := database.Migrate(ctx, cfg.URL); err != nil {
			return nil, nil, fmt.Errorf("migrate database: %w", err)
		}
		db, err := database.New(ctx, cfg.URL, cfg.MaxConns, cfg.MinConns)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		checks["database"] = db.HealthCheck

		repo, err := planner.NewPostgresRepository(db.Pool)
		if err != nil {
			return nil, nil, err
		}
		return repo, planner.NewPostgresEventLogger(db.Pool), nil

	case config.DriverSQLite:
		path := cfg.SQLitePath
		if path == "" {
			var err error
			if path, err = planner.DefaultSQLitePath(); err != nil {
				return nil, nil, err
			}
		}
		repo, err := planner.OpenSQLite(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite %s: %w", path, err)
		}
		a.closers = append(a.closers, func() { _ = repo.Close() })
		slog.Info("using sqlite store", "path", path)
		return repo, planner.NopEventLogger{}, nil

	default:
		slog.Warn("using in-memory store; plans are lost on restart")
		return planner.NewMemoryRepository(), planner.NopEventLogger{}, nil
	}
}

func newPolicy(cfg *config.Config, checks map[string]httpapi.HealthCheck) plan.Policy {
	switch cfg.Planner.Policy {
	case config.PolicyMinimal:
		return plan.MinimalPolicy{}
	case config.PolicyAdvisor:
		router := advisor.NewRouter()
		router.Register("openai", advisor.NewOpenAIProvider(cfg.Advisor.APIKey,
			advisor.WithBaseURL(cfg.Advisor.BaseURL),
			advisor.WithModel(cfg.Advisor.Model),
		))
		checks["advisor"] = router.HealthCheck
		return advisor.NewPolicy(router, cfg.Advisor.Model)
	default:
		return plan.DifficultyPolicy{}
	}
}
