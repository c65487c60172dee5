package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aescanero/autocal/pkg/domain"
	"github.com/aescanero/autocal/pkg/ports"
)

var _ ports.ParameterStore = (*ParameterStore)(nil)

// newTestStore connects to REDIS_ADDR and skips when no server answers.
func newTestStore(t *testing.T) (*ParameterStore, *redis.Client) {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("redis not available at %s: %v", addr, err)
	}
	t.Cleanup(func() { client.Close() })
	return NewParameterStore(client, zap.NewNop()), client
}

func testEntity(t *testing.T, client *redis.Client) domain.Entity {
	e := domain.Transmon("test-" + uuid.NewString()[:8])
	t.Cleanup(func() {
		client.Del(context.Background(), e.Key(), e.StatusKey())
	})
	return e
}

func TestParameterRoundTrip(t *testing.T) {
	s, client := newTestStore(t)
	ctx := context.Background()
	q := testEntity(t, client)

	_, err := s.GetField(ctx, q, "clock_freqs:f01")
	assert.True(t, errors.Is(err, ports.ErrFieldNotFound))

	require.NoError(t, s.SetField(ctx, q, "clock_freqs:f01", domain.Some(4.641051698e9)))
	require.NoError(t, s.SetField(ctx, q, "rxy:amp180", domain.None()))

	raw, err := client.HGet(ctx, q.Key(), "rxy:amp180").Result()
	require.NoError(t, err)
	assert.Equal(t, "nan", raw)

	fields, err := s.GetFields(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, domain.Some(4.641051698e9), fields["clock_freqs:f01"])
	assert.False(t, fields["rxy:amp180"].IsSet())

	require.NoError(t, s.PopulateIfAbsent(ctx, q, map[string]domain.Value{
		"clock_freqs:f01": domain.None(),
		"rxy:duration":    domain.Some(28e-9),
	}))
	v, err := s.GetField(ctx, q, "clock_freqs:f01")
	require.NoError(t, err)
	assert.True(t, v.IsSet())
	ok, err := s.FieldExists(ctx, q, "rxy:duration")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStatusRoundTrip(t *testing.T) {
	s, client := newTestStore(t)
	ctx := context.Background()
	q := testEntity(t, client)

	_, err := s.GetStatus(ctx, q, "T1")
	assert.True(t, errors.Is(err, ports.ErrStatusMissing))

	require.NoError(t, s.PopulateStatusIfAbsent(ctx, q, "T1"))
	st, err := s.GetStatus(ctx, q, "T1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotCalibrated, st)

	require.NoError(t, s.SetStatus(ctx, q, "T1", domain.StatusCalibrated))
	st, err = s.GetStatus(ctx, q, "T1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCalibrated, st)

	require.NoError(t, client.HSet(ctx, q.StatusKey(), "T2", "bogus").Err())
	_, err = s.GetStatus(ctx, q, "T2")
	assert.Error(t, err)
}
