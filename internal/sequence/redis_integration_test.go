//go:build integration

package sequence

import (
	"context"
	"sync"
	"testing"

	"sortec/internal/config"
	"sortec/lib/testutil/containers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedis_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	seq, err := NewRedis(&config.Config{Redis: containers.Redis(t)})
	require.NoError(t, err)
	require.NotNil(t, seq)
	t.Cleanup(func() { _ = seq.Close() })

	ctx := context.Background()

	t.Run("seed applies once", func(t *testing.T) {
		require.NoError(t, seq.client.Del(ctx, seq.key).Err())
		require.NoError(t, seq.Seed(ctx, 7))
		require.NoError(t, seq.Seed(ctx, 100))

		value, err := seq.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(8), value)
	})

	t.Run("concurrent next is gapless and unique", func(t *testing.T) {
		require.NoError(t, seq.client.Del(ctx, seq.key).Err())

		const n = 50
		values := make(chan int64, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				value, err := seq.Next(ctx)
				assert.NoError(t, err)
				values <- value
			}()
		}
		wg.Wait()
		close(values)

		seen := make(map[int64]bool, n)
		for v := range values {
			assert.False(t, seen[v], v)
			seen[v] = true
		}
		for v := int64(1); v <= n; v++ {
			assert.True(t, seen[v], v)
		}
	})
}
