// Package cache stores generated recommendations in redis. Plans are a pure
// function of profile, knowledge version and input policy, so the key is a
// hash of exactly those three.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/Skufu/fisioplan/internal/recommend"
)

const keyPrefix = "fisioplan:recommendation:"

type Cache struct {
	client    *redis.Client
	ttl       time.Duration
	namespace string
}

// New wraps an existing client. namespace usually combines the knowledge
// version and input policy so that a new table never serves stale plans.
func New(client *redis.Client, ttl time.Duration, namespace string) *Cache {
	return &Cache{client: client, ttl: ttl, namespace: namespace}
}

// Dial connects to redis and verifies the connection.
func Dial(ctx context.Context, addr, password string, db int, ttl time.Duration, namespace string) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return New(client, ttl, namespace), nil
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// Key returns the redis key for profile.
func (c *Cache) Key(profile recommend.PatientProfile) (string, error) {
	raw, err := json.Marshal(profile)
	if err != nil {
		return "", fmt.Errorf("encode profile: %w", err)
	}
	sum := sha256.New()
	sum.Write([]byte(c.namespace))
	sum.Write([]byte{0})
	sum.Write(raw)
	return keyPrefix + hex.EncodeToString(sum.Sum(nil)), nil
}

// Get returns the cached plan. ok is false on a miss.
func (c *Cache) Get(ctx context.Context, profile recommend.PatientProfile) (rec recommend.TreatmentRecommendation, ok bool, err error) {
	key, err := c.Key(profile)
	if err != nil {
		return rec, false, err
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, fmt.Errorf("redis get: %w", err)
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return recommend.TreatmentRecommendation{}, false, fmt.Errorf("decode cached recommendation: %w", err)
	}
	return rec, true, nil
}

func (c *Cache) Set(ctx context.Context, profile recommend.PatientProfile, rec recommend.TreatmentRecommendation) error {
	key, err := c.Key(profile)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode recommendation: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
