// Package pricing resolves per-operation credit costs from the mutable
// settings table, with compiled-in fallbacks when the table is unreachable.
package pricing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pringgosatmoko/Creativestudio/pkg/logging"
	"github.com/pringgosatmoko/Creativestudio/pkg/models"
)

// ErrUnknownKind is returned for operation kinds with no price entry.
var ErrUnknownKind = errors.New("unknown operation kind")

// settingKeys maps operation kinds to their settings-table keys.
var settingKeys = map[models.OperationKind]string{
	models.KindImage:  "cost_image",
	models.KindVideo:  "cost_video",
	models.KindVoice:  "cost_voice",
	models.KindStudio: "cost_studio",
}

// defaults are served whenever the settings table cannot be read.
var defaults = map[models.OperationKind]int64{
	models.KindImage:  20,
	models.KindVideo:  150,
	models.KindVoice:  150,
	models.KindStudio: 600,
}

const cacheTTL = 60 * time.Second

// Service resolves operation costs. The Redis cache is optional; a nil
// client means every lookup goes to Postgres.
type Service struct {
	db     *sql.DB
	cache  goredis.UniversalClient
	logger logging.Logger
}

// New creates a pricing service.
func New(db *sql.DB, cache goredis.UniversalClient, logger logging.Logger) *Service {
	return &Service{db: db, cache: cache, logger: logger}
}

// Cost returns the credit cost of one operation of the given kind. The value
// is read once per call; callers must hold it for the lifetime of an attempt
// rather than re-resolving mid-flight.
func (s *Service) Cost(ctx context.Context, kind models.OperationKind) (int64, error) {
	key, ok := settingKeys[kind]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey(key)).Result(); err == nil {
			if cost, err := strconv.ParseInt(cached, 10, 64); err == nil {
				return cost, nil
			}
		}
	}

	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = $1`, key,
	).Scan(&raw)
	if err != nil {
		if err != sql.ErrNoRows {
			s.logger.WithError(err).WithField("key", key).Warn("Price lookup failed, serving default")
		}
		return defaults[kind], nil
	}

	cost, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || cost <= 0 {
		s.logger.WithField("key", key).WithField("value", raw).Warn("Invalid price value, serving default")
		return defaults[kind], nil
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey(key), raw, cacheTTL).Err(); err != nil {
			s.logger.WithError(err).Debug("Price cache write failed")
		}
	}

	return cost, nil
}

// Costs returns the full price table, falling back per entry.
func (s *Service) Costs(ctx context.Context) map[models.OperationKind]int64 {
	out := make(map[models.OperationKind]int64, len(settingKeys))
	for kind := range settingKeys {
		cost, err := s.Cost(ctx, kind)
		if err != nil {
			cost = defaults[kind]
		}
		out[kind] = cost
	}
	return out
}

// SetCost upserts a price entry and invalidates its cache key.
func (s *Service) SetCost(ctx context.Context, kind models.OperationKind, cost int64) error {
	key, ok := settingKeys[kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if cost <= 0 {
		return fmt.Errorf("cost must be positive, got %d", cost)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = $2`,
		key, strconv.FormatInt(cost, 10),
	)
	if err != nil {
		return fmt.Errorf("set cost: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Del(ctx, cacheKey(key)).Err(); err != nil {
			s.logger.WithError(err).Debug("Price cache invalidation failed")
		}
	}
	return nil
}

// Default returns the compiled-in fallback cost for a kind.
func Default(kind models.OperationKind) (int64, bool) {
	cost, ok := defaults[kind]
	return cost, ok
}

func cacheKey(settingKey string) string {
	return "pricing:" + settingKey
}
