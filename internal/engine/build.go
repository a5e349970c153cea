package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/askdb/askdb/internal/cache"
	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/embedding"
	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/pool"
	"github.com/askdb/askdb/internal/schema"
	"github.com/askdb/askdb/internal/selector"
)

// Deps are the externally constructed collaborators handed to Build. The
// host owns their lifetime.
type Deps struct {
	Model    llm.Service
	Embedder embedding.Provider
	Pool     *pool.Pool
	Logger   *zap.Logger
}

// Build prepares an engine from configuration. A cache entry matching the
// schema source hash and format version makes the start warm; anything
// else, including a corrupt entry, degrades to a cold parse with a
// best-effort cache save afterwards.
func Build(ctx context.Context, cfg *config.Config, deps Deps) (*Engine, error) {
	started := time.Now()
	log := deps.Logger

	source, err := schema.ReadSource(cfg.Schema.Path)
	if err != nil {
		return nil, err
	}

	var store *cache.Store

	if cfg.Cache.Enabled {
		store, err = cache.NewStore(cfg.Cache.Directory, cfg.Cache.FormatVersion, log)
		if err != nil {
			log.Warn("cache unavailable, continuing without it", zap.Error(err))
			store = nil
		}
	}

	var (
		key    string
		snap   *schema.Snapshot
		embeds map[string][]float32
	)

	if store != nil {
		key = cache.DeriveKey(source, cfg.Cache.FormatVersion)

		if path, ok := store.Lookup(key); ok {
			entry, loadErr := store.Load(path)
			if loadErr != nil {
				log.Warn("cache entry invalid, rebuilding", zap.Error(loadErr))
			} else {
				snap = entry.Snapshot
				embeds = entry.TableEmbeddings

				log.Info("schema loaded from cache",
					zap.String("key", key),
					zap.Duration("age", time.Since(entry.CachedAt)))
			}
		}
	}

	if snap == nil {
		snap, err = schema.Parse(source)
		if err != nil {
			return nil, err
		}

		log.Info("schema parsed", zap.Int("tables", len(snap.Tables)))

		if deps.Embedder != nil && deps.Embedder.Enabled() {
			embedStart := time.Now()

			embeds, err = deps.Embedder.EmbedTables(ctx, snap.Tables)
			if err != nil {
				log.Warn("table embedding failed, continuing without vectors", zap.Error(err))

				embeds = nil
			} else {
				log.Info("table embeddings computed",
					zap.Int("tables", len(embeds)),
					zap.Duration("elapsed", time.Since(embedStart)))
			}
		}

		if store != nil {
			entry := &cache.Entry{
				Key:             key,
				FormatVersion:   cfg.Cache.FormatVersion,
				CachedAt:        time.Now(),
				Snapshot:        snap,
				TableEmbeddings: embeds,
			}

			if saveErr := store.Save(entry, store.Path(key)); saveErr != nil {
				log.Warn("cache save failed, continuing without it", zap.Error(saveErr))
			}
		}
	}

	sel := selector.New(cfg.Selector.Aliases, cfg.Selector.MaxTables, log)

	log.Info("engine ready",
		zap.Int("tables", len(snap.Tables)),
		zap.Duration("elapsed", time.Since(started)))

	return New(snap, embeds, sel, deps.Model, deps.Pool, log), nil
}
