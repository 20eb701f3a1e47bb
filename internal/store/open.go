package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rcliao/markov-bot/internal/config"
)

// Open creates the store selected by cfg.Store.Backend for cfg.Order.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		s   Store
		err error
	)
	switch cfg.Store.Backend {
	case "memory":
		s = NewMemoryStore(cfg.Order, nil)
	case "", "sqlite":
		s, err = NewSQLiteStore(cfg.Store.Path, cfg.Order)
	case "postgres":
		s, err = NewPostgresStore(cfg.Store.DSN, cfg.Order)
	case "redis":
		r := cfg.Store.Redis
		s, err = NewRedisStore(ctx, &RedisConfig{
			Addr:     r.Addr,
			Password: r.Password,
			DB:       r.DB,
			Prefix:   r.Prefix,
		}, cfg.Order)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}

	logger.Info("store opened",
		zap.String("backend", cfg.Store.Backend),
		zap.Int("order", cfg.Order))
	return s, nil
}
