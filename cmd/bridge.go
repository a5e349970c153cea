package cmd

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/embedding"
	"github.com/askdb/askdb/internal/engine"
	"github.com/askdb/askdb/internal/errors"
	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/pool"
)

// poolDescriptor maps the database section of the configuration onto a
// connection descriptor.
func poolDescriptor(cfg *config.Config) pool.Descriptor {
	return pool.Descriptor{
		Driver:                 cfg.Database.Driver,
		Server:                 cfg.Database.Server,
		Port:                   cfg.Database.Port,
		Database:               cfg.Database.Database,
		Username:               cfg.Database.Username,
		Password:               cfg.Database.Password,
		TrustedConnection:      cfg.Database.TrustedConnection,
		Encrypt:                cfg.Database.Encrypt,
		TrustServerCertificate: cfg.Database.TrustServerCertificate,
	}
}

// poolConfig parses the duration strings of the pool section. Config
// validation already checked them, so failures here mean the config was
// built programmatically without validation.
func poolConfig(cfg *config.Config) (pool.Config, error) {
	acquire, err := time.ParseDuration(cfg.Pool.AcquireTimeout)
	if err != nil {
		return pool.Config{}, errors.Wrapf(err, errors.ErrTypeConfig,
			"invalid pool acquire timeout %q", cfg.Pool.AcquireTimeout)
	}

	recycle, err := time.ParseDuration(cfg.Pool.RecycleAfter)
	if err != nil {
		return pool.Config{}, errors.Wrapf(err, errors.ErrTypeConfig,
			"invalid pool recycle interval %q", cfg.Pool.RecycleAfter)
	}

	return pool.Config{
		MaxSize:           cfg.Pool.MaxSize,
		MaxOverflow:       cfg.Pool.MaxOverflow,
		AcquireTimeout:    acquire,
		RecycleAfter:      recycle,
		ValidateBeforeUse: cfg.Pool.ValidateBeforeUse,
	}, nil
}

// llmConfig maps the llm section onto a client configuration.
func llmConfig(cfg *config.Config) (llm.Config, error) {
	timeout, err := time.ParseDuration(cfg.LLM.Timeout)
	if err != nil {
		return llm.Config{}, errors.Wrapf(err, errors.ErrTypeConfig,
			"invalid llm timeout %q", cfg.LLM.Timeout)
	}

	return llm.Config{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  timeout,
	}, nil
}

// openPool connects the manager's pool using the configured descriptor.
func openPool(ctx context.Context, cfg *config.Config, manager *pool.Manager) (*pool.Pool, error) {
	pcfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	return manager.Get(ctx, poolDescriptor(cfg), pcfg)
}

// buildEngine assembles the whole pipeline: model client, embedder,
// connection pool and engine.
func buildEngine(ctx context.Context, cfg *config.Config, manager *pool.Manager, logger *zap.Logger) (*engine.Engine, error) {
	lcfg, err := llmConfig(cfg)
	if err != nil {
		return nil, err
	}

	model, err := llm.NewClient(lcfg, logger)
	if err != nil {
		return nil, err
	}

	embedder, err := embedding.NewProvider(
		cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.BaseURL)
	if err != nil {
		return nil, err
	}

	p, err := openPool(ctx, cfg, manager)
	if err != nil {
		return nil, err
	}

	return engine.Build(ctx, cfg, engine.Deps{
		Model:    model,
		Embedder: embedder,
		Pool:     p,
		Logger:   logger,
	})
}
