//go:build integration

package docker

import (
	"context"
	"testing"
	"time"

	"github.com/dyluth/tablero/pkg/board"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartStopRedis(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cli, err := NewClient(ctx)
	if err != nil {
		t.Skipf("Docker not available: %v", err)
	}
	defer cli.Close()

	workspace := "it-" + GenerateRunID()[:8]
	defer StopRedis(context.Background(), cli, workspace)

	info, err := StartRedis(ctx, cli, workspace, "")
	require.NoError(t, err)
	assert.True(t, info.Created)
	assert.True(t, info.Running)

	// Second start reuses the container
	again, err := StartRedis(ctx, cli, workspace, "")
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, info.ID, again.ID)
	assert.Equal(t, info.Port, again.Port)

	opts, err := redis.ParseURL(RedisURL(info.Port))
	require.NoError(t, err)
	client, err := board.NewClient(opts, workspace)
	require.NoError(t, err)
	defer client.Close()

	require.Eventually(t, func() bool { return client.Ping(ctx) == nil }, 30*time.Second, 200*time.Millisecond)

	removed, err := StopRedis(ctx, cli, workspace)
	require.NoError(t, err)
	assert.True(t, removed)

	found, err := FindRedis(ctx, cli, workspace)
	require.NoError(t, err)
	assert.Nil(t, found)

	removed, err = StopRedis(ctx, cli, workspace)
	require.NoError(t, err)
	assert.False(t, removed)
}
