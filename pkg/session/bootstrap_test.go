package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikolayKlyatishev/vector-view/pkg/api"
)

func TestBootstrapRestoresActiveConnection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.addReachable(t, "a", "/db/a")
	require.NoError(t, h.m.Connect(ctx, id))

	m := h.reload(t)
	require.False(t, m.IsConnected())
	m.Bootstrap(ctx, BootstrapConfig{})

	assert.True(t, m.IsConnected())
	active, ok := m.Active()
	require.True(t, ok)
	assert.Equal(t, id, active.ID)
}

func TestBootstrapCreatesDefaultConnection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	dir := t.TempDir()
	h.opener.AddStore(dir).AddCollection("usage-guides", nil)

	cfg := BootstrapConfig{DBPath: dir, CollectionName: "usage-guides", EmbeddingModel: "m"}
	h.m.Bootstrap(ctx, cfg)

	require.True(t, h.m.IsConnected())
	active, _ := h.m.Active()
	assert.Equal(t, DefaultConnectionName, active.Name)

	// A second bootstrap from a clean session reuses the entry.
	h.m.Disconnect(ctx)
	h.m.Bootstrap(ctx, cfg)
	assert.Len(t, h.m.List(), 1)
	assert.True(t, h.m.IsConnected())
}

func TestBootstrapMissingDatabaseIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.m.Bootstrap(context.Background(), BootstrapConfig{DBPath: "/definitely/not/here", CollectionName: "c", EmbeddingModel: "m"})

	assert.False(t, h.m.IsConnected())
	assert.Empty(t, h.m.List())
	assert.Contains(t, h.m.InitializationError(), "does not exist")
}

func TestBootstrapUnreachableActiveConnection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.addReachable(t, "a", "/db/a")
	require.NoError(t, h.m.Connect(ctx, id))

	h.loader.Fail = map[string]error{"test-model": assert.AnError}
	m := h.reload(t)
	m.Bootstrap(ctx, BootstrapConfig{})

	assert.False(t, m.IsConnected())
	assert.NotEmpty(t, m.InitializationError())
	assert.Equal(t, api.ErrorTypeConfiguration, api.TypeOf(m.Connect(ctx, id)))
}

func TestBootstrapNothingConfigured(t *testing.T) {
	h := newHarness(t)
	h.m.Bootstrap(context.Background(), BootstrapConfig{})
	assert.False(t, h.m.IsConnected())
	assert.Empty(t, h.m.InitializationError())
}
