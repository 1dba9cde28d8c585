// Package app wires configuration into a ready dashboard: catalog, updater,
// insight requester and the optional archive, cache and health probe.
package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"

	"investpro/pkg/config"
	"investpro/pkg/database"
	"investpro/services/dashboard"
	"investpro/services/engine"
	"investpro/services/market"
)

// App holds the assembled components of one run
type App struct {
	Config    *config.Config
	Session   *dashboard.Session
	Requester *engine.Requester
	Prober    *dashboard.Prober
	DB        *database.DB
	Store     *market.Store

	cache *engine.RedisCache
}

// Build assembles the dashboard from cfg. When a database is configured its
// config table overrides cfg before anything else is built.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	if cfg.DatabaseURL != "" {
		db, err := database.New(database.DefaultConfig(cfg.DatabaseURL))
		if err != nil {
			return nil, fmt.Errorf("connect archive: %w", err)
		}
		a.DB = db

		if err := db.Migrate(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrate archive: %w", err)
		}
		if err := config.LoadFromDB(ctx, db.DB, cfg); err != nil {
			a.Close()
			return nil, fmt.Errorf("load from db: %w", err)
		}
		a.Store = market.NewStore(db.DB)
	}

	requester, err := a.buildRequester(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Requester = requester

	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	catalog := market.SeedCatalog(rng)

	sim := market.NewSimulator(rng)
	sim.Latency = cfg.SimulatedLatency

	var updater dashboard.Updater = sim
	if cfg.BrapiToken != "" {
		fetcher, err := market.NewFetcher(cfg.BrapiToken)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create quote fetcher: %w", err)
		}
		updater = &market.LiveUpdater{Source: fetcher, Fallback: sim}
		log.Info().Msg("Live quotes enabled")
	}

	session, err := dashboard.NewSession(catalog, updater, requester)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Session = session

	if a.Store != nil {
		session.OnSnapshot(a.archive)
	}

	a.Prober = dashboard.NewProber(cfg.HealthURL, 5*time.Second)
	return a, nil
}

func (a *App) buildRequester(ctx context.Context) (*engine.Requester, error) {
	cfg := a.Config

	provider, err := engine.NewProvider(ctx, cfg.InsightProvider, cfg.InsightAPIKey(), cfg.InsightModel)
	if errors.Is(err, engine.ErrMissingAPIKey) {
		log.Warn().Str("provider", cfg.InsightProvider).Msg("Insight API key not set, insights unavailable")
		provider = nil
	} else if err != nil {
		return nil, fmt.Errorf("create insight provider: %w", err)
	}

	opts := []engine.Option{
		engine.WithLanguage(cfg.InsightLanguage),
		engine.WithTimeout(cfg.InsightTimeout),
	}

	if cfg.RedisAddr != "" && provider != nil {
		cache, err := engine.NewRedisCache(ctx, cfg.RedisAddr, cfg.InsightCacheTTL)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Insight cache disabled")
		} else {
			a.cache = cache
			opts = append(opts, engine.WithCache(cache))
		}
	}

	return engine.NewRequester(provider, opts...), nil
}

func (a *App) archive(snap *dashboard.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.Store.SaveSnapshot(ctx, snap.Assets, snap.UpdatedAt); err != nil {
		log.Error().Err(err).Uint64("seq", snap.Seq).Msg("Failed to archive snapshot")
	}
}

// Close releases the archive and cache connections
func (a *App) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			log.Warn().Err(err).Msg("Close insight cache")
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			log.Warn().Err(err).Msg("Close archive")
		}
	}
}
