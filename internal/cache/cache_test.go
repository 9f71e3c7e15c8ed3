package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/fisioplan/internal/recommend"
)

func setupTestCache(t *testing.T, namespace string) (*miniredis.Miniredis, *Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, New(client, time.Hour, namespace)
}

func sampleProfile() recommend.PatientProfile {
	return recommend.PatientProfile{Age: 33, Condition: "ombro", Severity: recommend.SeverityMild, PainLevel: 3, Lifestyle: recommend.LifestyleActive}
}

func TestCache_MissThenHit(t *testing.T) {
	mr, c := setupTestCache(t, "2024.1|reject")
	ctx := context.Background()

	engine, err := recommend.NewEngine(recommend.DefaultKnowledge())
	require.NoError(t, err)
	rec, err := engine.Generate(sampleProfile())
	require.NoError(t, err)

	_, ok, err := c.Get(ctx, sampleProfile())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, sampleProfile(), rec))

	got, ok, err := c.Get(ctx, sampleProfile())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, rec, got)

	key, err := c.Key(sampleProfile())
	require.NoError(t, err)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Hour, mr.TTL(key))

	mr.FastForward(2 * time.Hour)
	_, ok, err = c.Get(ctx, sampleProfile())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_KeyDependsOnNamespaceAndProfile(t *testing.T) {
	_, a := setupTestCache(t, "v1|reject")
	_, b := setupTestCache(t, "v2|reject")

	ka, err := a.Key(sampleProfile())
	require.NoError(t, err)
	kb, err := b.Key(sampleProfile())
	require.NoError(t, err)
	assert.NotEqual(t, ka, kb)

	other := sampleProfile()
	other.PainLevel = 4
	ko, err := a.Key(other)
	require.NoError(t, err)
	assert.NotEqual(t, ka, ko)

	again, err := a.Key(sampleProfile())
	require.NoError(t, err)
	assert.Equal(t, ka, again)
	assert.Contains(t, ka, keyPrefix)
}

func TestCache_CorruptEntry(t *testing.T) {
	mr, c := setupTestCache(t, "v1|reject")
	key, err := c.Key(sampleProfile())
	require.NoError(t, err)
	require.NoError(t, mr.Set(key, "{not json"))

	_, ok, err := c.Get(context.Background(), sampleProfile())
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestDial(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := Dial(context.Background(), mr.Addr(), "", 0, time.Minute, "v1")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	assert.NoError(t, c.Ping(context.Background()))

	_, err = Dial(context.Background(), "127.0.0.1:1", "", 0, time.Minute, "v1")
	assert.Error(t, err)
}
