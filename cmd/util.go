// Package cmd provides CLI commands for the epadash tool.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ocnguye/epa-dash-sub000/config"
	"github.com/ocnguye/epa-dash-sub000/credentials"
	"github.com/ocnguye/epa-dash-sub000/pkg/db"
	"github.com/ocnguye/epa-dash-sub000/pkg/logging"
	"github.com/ocnguye/epa-dash-sub000/pkg/participants"
	"github.com/ocnguye/epa-dash-sub000/pkg/pipeline"
	"github.com/ocnguye/epa-dash-sub000/pkg/reports"
	"github.com/ocnguye/epa-dash-sub000/pkg/review"
	"github.com/ocnguye/epa-dash-sub000/pkg/scores"
)

// Runner executes sync runs and report previews. *pipeline.Pipeline
// satisfies it; tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, cfg pipeline.Config) (*pipeline.Summary, error)
	Preview(ctx context.Context, reportID int64) (*pipeline.Detail, error)
}

// dbConfigFrom maps the CLI configuration onto a database config, leaving
// the password to the credentials chain.
func dbConfigFrom(cfg *config.CLIConfig) *db.Config {
	dbCfg := db.DefaultConfig()
	dbCfg.Host = cfg.Database.Host
	dbCfg.Port = cfg.Database.Port
	dbCfg.Database = cfg.Database.Database
	dbCfg.User = cfg.Database.User
	dbCfg.SSLMode = cfg.Database.SSLMode
	return dbCfg
}

// connectDatabase resolves the password and opens the connection pool.
func connectDatabase(ctx context.Context, cfg *config.CLIConfig) (*pgxpool.Pool, error) {
	logger := logging.MustGlobal()

	dbCfg := dbConfigFrom(cfg)
	password, source, err := credentials.DefaultChain(true).Resolve(dbCfg.User)
	if err != nil {
		return nil, fmt.Errorf("resolving database password for user %q: %w", dbCfg.User, err)
	}
	logger.Debug("Resolved database password", logging.F("source", source))
	dbCfg.Password = password

	pool, err := db.Connect(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return pool, nil
}

// connectRedis opens the cache client when one is configured.
func connectRedis(cfg *config.CLIConfig) *redis.Client {
	if !cfg.Redis.Enabled() {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
}

// buildRunner wires the full sync stack: database repositories, the
// optional Redis name cache, the review file sink, and the pipeline.
// The returned closer releases the pool and cache client.
func buildRunner(ctx context.Context, cfg *config.CLIConfig, reviewDir string) (Runner, func(), error) {
	logger := logging.MustGlobal()

	pool, err := connectDatabase(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if _, err := db.RegisterPoolStatsCollector(pool, "epadash", "sync"); err != nil {
		logger.Warn("Pool metrics registration failed", logging.Err(err))
	}

	var parts participants.Source = participants.NewRepository(pool, logger)
	rdb := connectRedis(cfg)
	if rdb != nil {
		ttl := cfg.Redis.CacheTTL
		if ttl <= 0 {
			ttl = participants.DefaultCacheTTL
		}
		parts = participants.NewCachedSource(parts, rdb, ttl, logger)
	}

	sink, err := review.NewFileSink(reviewDir, logger)
	if err != nil {
		db.Close(pool)
		return nil, nil, fmt.Errorf("preparing review directory: %w", err)
	}

	p := pipeline.New(
		reports.NewRepository(pool, logger),
		parts,
		scores.NewRepository(pool, logger),
		sink,
		pipeline.WithLogger(logger),
	)

	closer := func() {
		if rdb != nil {
			_ = rdb.Close()
		}
		db.Close(pool)
	}
	return p, closer, nil
}

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// resolveFormat picks the output format, letting a per-command flag
// override the configured default.
func resolveFormat(cfg *config.CLIConfig, flag string) config.OutputFormat {
	if flag != "" {
		return config.OutputFormat(flag)
	}
	return cfg.OutputFormat
}
