package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DRSN-tech/image-catalog/internal/cfg"
	"github.com/DRSN-tech/image-catalog/internal/domain"
	"github.com/DRSN-tech/image-catalog/internal/repository/redis/converter"
	"github.com/DRSN-tech/image-catalog/pkg/clients"
	"github.com/DRSN-tech/image-catalog/pkg/e"
	"github.com/DRSN-tech/image-catalog/pkg/logger"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

type CacheRepo struct {
	client *clients.RedisClient
	conv   converter.LocationConverter
	cfg    *cfg.RedisCfg
	logger logger.Logger
}

func NewCacheRepo(client *clients.RedisClient, conv converter.LocationConverter,
	cfg *cfg.RedisCfg, logger logger.Logger) *CacheRepo {
	return &CacheRepo{
		client: client,
		conv:   conv,
		cfg:    cfg,
		logger: logger,
	}
}

// GetLocation возвращает закэшированный адрес. Промах кэша: (nil, false, nil).
func (c *CacheRepo) GetLocation(ctx context.Context, key string) (*domain.LocationDetails, bool, error) {
	data, err := c.client.Client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, r.Nil) {
			return nil, false, nil
		}
		return nil, false, e.Wrap(whereami.WhereAmI(), err)
	}

	var model converter.LocationRedisModel
	if err := json.Unmarshal(data, &model); err != nil {
		c.logger.Warnf("Redis unmarshal failed, dropping %s: %v", key, e.Wrap(whereami.WhereAmI(), err))
		if err := c.client.Client.Del(ctx, key).Err(); err != nil {
			c.logger.Warnf("Redis del failed: %v", e.Wrap(whereami.WhereAmI(), err))
		}
		return nil, false, nil
	}

	return c.conv.ToDomain(&model), true, nil
}

func (c *CacheRepo) SetLocation(ctx context.Context, key string, location *domain.LocationDetails) error {
	if location == nil {
		return nil
	}

	data, err := json.Marshal(c.conv.ToRedisModel(location))
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := c.client.Client.Set(ctx, key, data, c.cfg.LocationTTL).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// GetMetadata возвращает найденные в кэше метаданные по ID, промахи пропускаются.
func (c *CacheRepo) GetMetadata(ctx context.Context, ids []string) (map[string]map[string]any, error) {
	result := make(map[string]map[string]any, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	keys := buildMetadataKeys(ids)
	values, err := c.client.Client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	for i, val := range values {
		data, err := redisValueToBytes(val, keys[i])
		if err != nil {
			c.logger.Warnf("%v", e.Wrap(whereami.WhereAmI(), err))
			continue
		}
		if data == nil {
			continue // cache miss
		}

		var model converter.MetadataRedisModel
		if err := json.Unmarshal(data, &model); err != nil {
			c.logger.Warnf("Redis unmarshal failed: %v", e.Wrap(whereami.WhereAmI(), err))
			continue
		}

		if model.ID != ids[i] {
			c.logger.Warnf("Cache ID mismatch: key_id: %s, model_id: %s", ids[i], model.ID)
			continue
		}
		result[ids[i]] = model.Metadata
	}

	return result, nil
}

// SetMetadata кэширует метаданные пачкой через pipeline.
// Записи, которые не удалось сериализовать, пропускаются.
func (c *CacheRepo) SetMetadata(ctx context.Context, metadata map[string]map[string]any) error {
	if len(metadata) == 0 {
		return nil
	}

	pipeline := c.client.Client.Pipeline()
	for id, meta := range metadata {
		data, err := json.Marshal(converter.MetadataRedisModel{ID: id, Metadata: meta})
		if err != nil {
			c.logger.Warnf("Failed to marshal metadata for caching (ID: %s): %v", id, e.Wrap(whereami.WhereAmI(), err))
			continue
		}
		pipeline.Set(ctx, metadataKey(id), data, c.cfg.MetadataTTL)
	}

	if _, err := pipeline.Exec(ctx); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func buildMetadataKeys(ids []string) []string {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = metadataKey(id)
	}

	return keys
}

func metadataKey(id string) string {
	return fmt.Sprintf("metadata:%s", id)
}

// redisValueToBytes конвертирует значение из Redis в []byte.
// Поддерживает string и []byte, возвращает ошибку для неизвестных типов.
func redisValueToBytes(val interface{}, key string) ([]byte, error) {
	switch v := val.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case nil:
		return nil, nil // cache miss
	default:
		return nil, fmt.Errorf("unexpected Redis value type for key %s: %T", key, val)
	}
}
