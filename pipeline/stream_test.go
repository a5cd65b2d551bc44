package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitAndCollect(t *testing.T) {
	ctx := context.Background()

	got, err := Collect(ctx, Emit(ctx, "a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestCollectEmpty(t *testing.T) {
	ctx := context.Background()

	got, err := Collect(ctx, Emit[int](ctx))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCollectStopsAtFirstError(t *testing.T) {
	ctx := context.Background()
	failure := fmt.Errorf("read failed")

	items := []Item[int]{{Value: 1}, {Value: 2}, {Err: failure}, {Value: 3}}
	got, err := Collect(ctx, EmitItems(ctx, items...))
	assert.Same(t, failure, err)
	assert.Equal(t, []int{1, 2}, got)
}

func TestEmitHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	out := Emit(ctx, 1, 2, 3, 4, 5)
	<-out
	cancel()

	// The producer must terminate rather than block on an abandoned channel.
	for range out {
	}
}
