package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const connectTimeout = 5 * time.Second

// RedisIndex stores the index as a list of JSON records under a single key,
// plus a hash from id to record under "<key>:ids" for lookups.
// Several processes pointed at the same key share one index.
type RedisIndex struct {
	client *redis.Client
	key    string
}

func NewRedisIndex(connectionString, key string) (IndexService, error) {
	opts, err := redis.ParseURL(connectionString)
	if err != nil {
		return nil, fmt.Errorf("invalid redis connection string: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", opts.Addr, err)
	}

	return &RedisIndex{
		client: client,
		key:    key,
	}, nil
}

func (r *RedisIndex) idsKey() string {
	return r.key + ":ids"
}

func (r *RedisIndex) CreateIndex(ctx context.Context) error {
	return r.client.Del(ctx, r.key, r.idsKey()).Err()
}

func (r *RedisIndex) Close() error {
	return r.client.Close()
}

// AppendImages pushes the batch with one RPUSH and records the ids in the same
// MULTI/EXEC, so readers never see one without the other. The first record
// with an id stays the one returned by GetImageByID.
func (r *RedisIndex) AppendImages(ctx context.Context, images []Image) error {
	if len(images) == 0 {
		return nil
	}
	values := make([]any, 0, len(images))
	for _, img := range images {
		data, err := json.Marshal(img)
		if err != nil {
			return fmt.Errorf("failed to encode image %s: %w", img.ID, err)
		}
		values = append(values, data)
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, r.key, values...)
		for i, img := range images {
			pipe.HSetNX(ctx, r.idsKey(), img.ID, values[i])
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append %d images: %w", len(images), err)
	}
	return nil
}

func (r *RedisIndex) GetImages(ctx context.Context) ([]Image, error) {
	raw, err := r.client.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	images := make([]Image, 0, len(raw))
	for i, item := range raw {
		var img Image
		if err := json.Unmarshal([]byte(item), &img); err != nil {
			return nil, fmt.Errorf("failed to decode record %d of %s: %w", i, r.key, err)
		}
		images = append(images, img)
	}
	return images, nil
}

func (r *RedisIndex) GetImageByID(ctx context.Context, id string) (*Image, error) {
	data, err := r.client.HGet(ctx, r.idsKey(), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var img Image
	if err := json.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", id, err)
	}
	return &img, nil
}
