package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Hour)

	_, found := m.Get(ctx, "[2009] EWHC 719 (Admin)")
	assert.False(t, found)

	require.NoError(t, m.Set(ctx, "[2009] EWHC 719 (Admin)", []byte(`{"verdict":"Dismissed"}`)))

	got, found := m.Get(ctx, "[2009] EWHC 719 (Admin)")
	require.True(t, found)
	assert.Equal(t, []byte(`{"verdict":"Dismissed"}`), got)

	// Different citations do not collide.
	_, found = m.Get(ctx, "[2009] EWCA Civ 309")
	assert.False(t, found)
}

func TestNopAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	var n Nop

	require.NoError(t, n.Set(ctx, "x", []byte("y")))
	_, found := n.Get(ctx, "x")
	assert.False(t, found)
}
