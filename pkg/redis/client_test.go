package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Client) {
	t.Helper()
	mr := miniredis.RunT(t)

	client, err := NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name        string
		url         string
		expectError bool
	}{
		{
			name:        "Reachable server",
			url:         "redis://" + mr.Addr(),
			expectError: false,
		},
		{
			name:        "Invalid URL",
			url:         "invalid://url",
			expectError: true,
		},
		{
			name:        "Empty URL",
			url:         "",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.url, "test", nil)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, client)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, client.KeyBuilder)
				assert.NoError(t, client.Close())
			}
		})
	}
}

func TestNewClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	client, err := NewClient("redis://"+addr, "test", nil)
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestClient_GetBytes(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("test:key1", "value1"))

	raw, err := client.GetBytes(ctx, "test:key1")
	require.NoError(t, err)
	assert.Equal(t, []byte("value1"), raw)

	_, err = client.GetBytes(ctx, "test:missing")
	assert.ErrorIs(t, err, Nil)
}

func TestClient_TxPipelined(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	err := client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, "x", "1", 0)
		pipe.Set(ctx, "y", "2", 0)
		return nil
	})
	require.NoError(t, err)

	mr.CheckGet(t, "x", "1")
	mr.CheckGet(t, "y", "2")
}

func TestClient_TxPipelinedError(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()
	mr.Close()

	err := client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, "x", "1", 0)
		return nil
	})
	assert.Error(t, err)
}

func TestClient_Health(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	assert.NoError(t, client.Health(ctx))

	mr.Close()
	assert.Error(t, client.Health(ctx))
}

func TestPrefixForLog(t *testing.T) {
	assert.Equal(t, "short", prefixForLog("short"))
	assert.Equal(t, "prod:visits:snapshot:abc…", prefixForLog("prod:visits:snapshot:abcdefgh"))
}
