package service

import (
	"context"
	"encoding/json"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/school-ops-api/pkg/errors"
)

type memoryCacheStub struct {
	values map[string]string
}

func (m *memoryCacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal([]byte(raw), dest)
}

func (m *memoryCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = string(raw)
	return nil
}

func (m *memoryCacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	for key := range m.values {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.values, key)
		}
	}
	return nil
}

func TestSessionMonthKey(t *testing.T) {
	assert.Equal(t, "sessions:2024-03:all:any", SessionMonthKey("2024-03", "", ""))
	assert.Equal(t, "sessions:2024-03:c1:COMPLETED", SessionMonthKey("2024-03", "c1", "COMPLETED"))
}

func TestCacheServiceRoundTripAndInvalidate(t *testing.T) {
	repo := &memoryCacheStub{values: map[string]string{"other:key": `1`}}
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, zap.NewNop(), true)
	ctx := context.Background()

	var out []string
	hit, err := svc.Get(ctx, "sessions:2024-03:all:any", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "sessions:2024-03:all:any", []string{"a"}, 0))
	hit, err = svc.Get(ctx, "sessions:2024-03:all:any", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"a"}, out)

	require.NoError(t, svc.InvalidateSessions(ctx))
	assert.NotContains(t, repo.values, "sessions:2024-03:all:any")
	assert.Contains(t, repo.values, "other:key")

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
}

func TestCacheServiceDisabled(t *testing.T) {
	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
	hit, err := nilSvc.Get(context.Background(), "k", nil)
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, nilSvc.InvalidateSessions(context.Background()))

	disabled := NewCacheService(&memoryCacheStub{values: map[string]string{}}, nil, 0, nil, false)
	assert.NoError(t, disabled.Set(context.Background(), "k", 1, 0))
	assert.False(t, disabled.Enabled())
}
