package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"smc-analyst/config"
	"smc-analyst/internal/api"
	"smc-analyst/internal/circuit"
	"smc-analyst/internal/database"
	"smc-analyst/internal/engine"
	"smc-analyst/internal/events"
	"smc-analyst/internal/feed"
	"smc-analyst/internal/guard"
	"smc-analyst/internal/logging"
	"smc-analyst/internal/market"
	"smc-analyst/internal/observer"
	"smc-analyst/internal/oracle"
	"smc-analyst/internal/phase"
	"smc-analyst/internal/state"
	"smc-analyst/internal/validator"
	"smc-analyst/internal/vault"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.LoggingConfig.Level,
		Format: cfg.LoggingConfig.Format,
		Output: cfg.LoggingConfig.Output,
	})
	if err != nil {
		log.Fatalf("failed to initialize logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := events.NewBus()
	registry := state.NewRegistry()

	// Audit storage is optional; the engine runs without it
	var audit *database.AuditRepository
	if cfg.DatabaseConfig.Enabled {
		db, err := database.NewDB(database.Config{
			Host:     cfg.DatabaseConfig.Host,
			Port:     cfg.DatabaseConfig.Port,
			User:     cfg.DatabaseConfig.User,
			Password: cfg.DatabaseConfig.Password,
			Database: cfg.DatabaseConfig.Database,
			SSLMode:  cfg.DatabaseConfig.SSLMode,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("database connection failed")
		}
		defer db.Close()

		if err := db.RunMigrations(ctx); err != nil {
			logger.Fatal().Err(err).Msg("migrations failed")
		}
		audit = database.NewAuditRepository(db)
	}

	// Context snapshots survive restarts through Redis; without Redis
	// the store keeps snapshots in memory only
	var redisClient *redis.Client
	if cfg.RedisConfig.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
	}
	snapshots := database.NewRedisContextStore(redisClient, logger)

	orc := buildOracle(ctx, cfg, logger)

	obs := observer.New(observer.Config{
		SwingLookback:    cfg.AnalysisConfig.SwingLookback,
		ATRMultiplier:    cfg.AnalysisConfig.ATRMultiplier,
		PoolTolerance:    cfg.AnalysisConfig.PoolTolerance,
		SweepMaxSwingAge: cfg.AnalysisConfig.SweepMaxSwingAge,
	})
	detector := phase.NewDetector(cfg.AnalysisConfig.PhaseLookbackDuration())
	val := validator.New(validator.Config{
		MaxTradesPerSession: cfg.ValidatorConfig.MaxTradesPerSession,
		SweepWindow:         time.Duration(cfg.ValidatorConfig.SweepWindowMinutes) * time.Minute,
	})

	provider := feed.NewBinanceProvider("")

	eng := engine.New(engine.Config{
		Timeframes: []market.Timeframe{
			market.Timeframe(cfg.AnalysisConfig.HigherTimeframe),
			market.Timeframe(cfg.AnalysisConfig.LowerTimeframe),
		},
		CandleLimit:   cfg.AnalysisConfig.CandleLimit,
		PhaseLookback: cfg.AnalysisConfig.PhaseLookbackDuration(),
	}, provider, orc, obs, detector, val, registry, bus, auditStore(audit), snapshots, logger)

	if orc != nil {
		breaker := circuit.NewBreaker(circuit.DefaultConfig())
		breaker.OnTrip(func(reason string) {
			logger.Warn().Str("reason", reason).Msg("oracle circuit breaker tripped")
		})
		eng.SetOracleBreaker(breaker)
	}

	var newsGuard *guard.NewsGuard
	if cfg.GuardConfig.Enabled {
		newsGuard = guard.NewNewsGuard(guard.Config{
			CooldownBefore: time.Duration(cfg.GuardConfig.CooldownBeforeMinutes) * time.Minute,
			CooldownAfter:  time.Duration(cfg.GuardConfig.CooldownAfterMinutes) * time.Minute,
		})
		eng.SetNewsGuard(newsGuard)
	}

	restoreContexts(ctx, cfg.AnalysisConfig.Symbols, snapshots, registry, logger)

	if cfg.ServerConfig.Enabled {
		server := api.NewServer(api.ServerConfig{
			Host:                 cfg.ServerConfig.Host,
			Port:                 cfg.ServerConfig.Port,
			ProductionMode:       cfg.ServerConfig.ProductionMode,
			OperatorName:         cfg.ServerConfig.OperatorName,
			OperatorPasswordHash: cfg.ServerConfig.OperatorPasswordHash,
			JWTSecret:            cfg.ServerConfig.JWTSecret,
		}, registry, bus, audit, snapshots, newsGuard, logger)

		go func() {
			if err := server.Start(ctx); err != nil {
				logger.Error().Err(err).Msg("API server stopped")
			}
		}()
	}

	logger.Info().
		Strs("symbols", cfg.AnalysisConfig.Symbols).
		Str("htf", cfg.AnalysisConfig.HigherTimeframe).
		Str("ltf", cfg.AnalysisConfig.LowerTimeframe).
		Msg("analysis engine starting")

	runCycles(ctx, cfg, eng, logger)

	logger.Info().Msg("shutdown complete")
}

// auditStore converts a possibly-nil repository to the engine interface.
// A typed nil inside a non-nil interface would defeat the engine's nil
// checks.
func auditStore(repo *database.AuditRepository) engine.AuditStore {
	if repo == nil {
		return nil
	}
	return repo
}

// buildOracle constructs the LLM client, resolving the API key through
// Vault when enabled. Returns nil when no oracle is configured; the
// engine then degrades every cycle to NO_TRADE.
func buildOracle(ctx context.Context, cfg *config.Config, logger zerolog.Logger) engine.Oracle {
	if !cfg.OracleConfig.Enabled {
		logger.Warn().Msg("oracle disabled, all cycles will produce NO_TRADE")
		return nil
	}

	apiKey := cfg.OracleConfig.APIKey()
	if cfg.VaultConfig.Enabled {
		vc, err := vault.NewClient(vault.Config{
			Enabled:    true,
			Address:    cfg.VaultConfig.Address,
			Token:      cfg.VaultConfig.Token,
			MountPath:  cfg.VaultConfig.MountPath,
			TLSEnabled: cfg.VaultConfig.TLSEnabled,
			CACert:     cfg.VaultConfig.CACert,
		})
		if err != nil {
			logger.Error().Err(err).Msg("vault client creation failed, falling back to config key")
		} else if key, err := vc.GetOracleKey(ctx, cfg.OracleConfig.Provider); err != nil {
			logger.Warn().Err(err).Msg("vault key lookup failed, falling back to config key")
		} else {
			apiKey = key
		}
	}

	if apiKey == "" {
		logger.Warn().Msg("no oracle API key configured, all cycles will produce NO_TRADE")
		return nil
	}

	client := oracle.NewClient(&oracle.ClientConfig{
		Provider:    oracle.Provider(cfg.OracleConfig.Provider),
		APIKey:      apiKey,
		Model:       cfg.OracleConfig.Model,
		MaxTokens:   cfg.OracleConfig.MaxTokens,
		Temperature: cfg.OracleConfig.Temperature,
		Timeout:     time.Duration(cfg.OracleConfig.TimeoutSeconds) * time.Second,
	})
	return client
}

// restoreContexts rehydrates per-symbol state from snapshots
func restoreContexts(ctx context.Context, symbols []string, snapshots *database.RedisContextStore, registry *state.Registry, logger zerolog.Logger) {
	for _, symbol := range symbols {
		sc, err := snapshots.LoadContext(ctx, symbol)
		if err != nil {
			logger.Warn().Err(err).Str("symbol", symbol).Msg("context restore failed")
			continue
		}
		if sc != nil {
			registry.Restore(sc)
			logger.Info().Str("symbol", symbol).Str("phase", string(sc.Phase.Current)).Msg("context restored")
		}
	}
}

// runCycles drives the analysis loop until the context is canceled
func runCycles(ctx context.Context, cfg *config.Config, eng *engine.Engine, logger zerolog.Logger) {
	ticker := time.NewTicker(cfg.AnalysisConfig.CycleIntervalDuration())
	defer ticker.Stop()

	cycle := func() {
		for _, symbol := range cfg.AnalysisConfig.Symbols {
			if _, err := eng.RunCycle(ctx, symbol); err != nil {
				logger.Error().Err(err).Str("symbol", symbol).Msg("analysis cycle failed")
			}
		}
	}

	cycle()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cycle()
		}
	}
}
