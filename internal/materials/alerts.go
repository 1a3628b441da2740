package materials

import (
	"context"
	"time"

	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	"github.com/apexbuild/apexbuild-backend/pkg/logger"
	redisclient "github.com/apexbuild/apexbuild-backend/pkg/redis"
)

// DefaultAlertTTL suppresses repeat low-stock alerts for the same material.
const DefaultAlertTTL = 6 * time.Hour

type alertStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	LowStockAlertKey(materialID string) string
}

// RedisAlerter deduplicates low-stock alerts through Redis and logs the
// first occurrence per TTL window.
type RedisAlerter struct {
	store alertStore
	logg  *logger.Logger
	ttl   time.Duration
}

// NewRedisAlerter builds an alerter on the shared Redis client.
func NewRedisAlerter(client *redisclient.Client, logg *logger.Logger, ttl time.Duration) *RedisAlerter {
	if ttl <= 0 {
		ttl = DefaultAlertTTL
	}
	return &RedisAlerter{store: client, logg: logg, ttl: ttl}
}

// LowStock records one alert per material per TTL window. Failures are
// logged and swallowed; alerting never fails a ledger write.
func (a *RedisAlerter) LowStock(ctx context.Context, material *models.Material) {
	if a == nil || a.store == nil || material == nil {
		return
	}
	key := a.store.LowStockAlertKey(material.ID.String())
	first, err := a.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), a.ttl)
	if err != nil {
		if a.logg != nil {
			a.logg.Error(ctx, "low stock alert dedupe failed", err)
		}
		return
	}
	if first && a.logg != nil {
		ctx = a.logg.WithFields(ctx, map[string]any{
			"material_id":   material.ID.String(),
			"material_name": material.Name,
			"quantity":      material.Quantity,
			"reorder_level": material.ReorderLevel,
		})
		a.logg.Warn(ctx, "material at or below reorder level")
	}
}
