package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerStoreFirstRequestIsImmediate(t *testing.T) {
	l := PerStore("blackwells", 0.5)

	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, "blackwells", l.Store())
}

func TestWaitPacesSecondRequest(t *testing.T) {
	l := PerStore("kennys", 10) // 100ms between requests

	require.NoError(t, l.Wait(context.Background()))

	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestWaitHonorsCancellation(t *testing.T) {
	l := PerStore("wordery", 0.1) // 10s between requests

	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wordery")
}
