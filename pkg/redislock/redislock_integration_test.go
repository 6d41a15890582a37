//go:build integration

package redislock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_MutualExclusion(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client, err := Connect(addr, "", 0)
	require.NoError(t, err)
	defer client.Close()

	l := New(client, time.Second)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "test:gala")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = l.Lock(waitCtx, "test:gala")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()

	again, err := l.Lock(ctx, "test:gala")
	require.NoError(t, err)
	again()
}
