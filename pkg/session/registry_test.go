package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikolayKlyatishev/vector-view/pkg/api"
)

func TestRegistryEncodeOrder(t *testing.T) {
	r := newRegistry()
	for _, id := range []string{"b", "c", "a"} {
		r.put(api.ConnectionConfig{ID: id, Name: id})
	}
	r.setActive("c")

	data, err := r.encode()
	require.NoError(t, err)

	back, err := decodeRegistry(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, back.order)
	assert.Equal(t, "c", back.active)
	assert.True(t, back.conns["c"].IsActive)

	// Valid JSON readable by a plain decoder.
	var plain struct {
		Connections        map[string]api.ConnectionConfig `json:"connections"`
		ActiveConnectionID *string                         `json:"active_connection_id"`
	}
	require.NoError(t, json.Unmarshal(data, &plain))
	assert.Len(t, plain.Connections, 3)
	assert.Equal(t, "c", *plain.ActiveConnectionID)
}

func TestRegistryEncodeNullActive(t *testing.T) {
	data, err := newRegistry().encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"connections":{},"active_connection_id":null}`, string(data))
}

func TestDecodeRegistryFillsMissingID(t *testing.T) {
	r, err := decodeRegistry([]byte(`{"connections":{"k1":{"name":"n"}},"active_connection_id":null,"extra":[1,2]}`))
	require.NoError(t, err)
	assert.Equal(t, "k1", r.conns["k1"].ID)
}

func TestDecodeRegistryRejectsMismatchedID(t *testing.T) {
	_, err := decodeRegistry([]byte(`{"connections":{"k1":{"id":"k2"}}}`))
	assert.Error(t, err)
}

func TestDecodeRegistryNullConnections(t *testing.T) {
	r, err := decodeRegistry([]byte(`{"connections":null}`))
	require.NoError(t, err)
	assert.Empty(t, r.list())
}

func TestRemoveKeepsOrder(t *testing.T) {
	r := newRegistry()
	for _, id := range []string{"a", "b", "c"} {
		r.put(api.ConnectionConfig{ID: id})
	}
	r.remove("b")
	assert.Equal(t, []string{"a", "c"}, r.order)
}

func TestResolvePath(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "db"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "file"), nil, 0o644))

	got, ok := resolvePath("db", []string{root})
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "db"), got)

	_, ok = resolvePath("file", []string{root})
	assert.False(t, ok, "only directories are resolved")

	_, ok = resolvePath("/definitely/missing", []string{root})
	assert.False(t, ok, "absolute paths are not resolved")

	got, ok = resolvePath(root, nil)
	require.True(t, ok)
	assert.Equal(t, root, got)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	assert.Equal(t, home, expandHome("~"))
	assert.Equal(t, filepath.Join(home, "Documents"), expandHome("~/Documents"))
	assert.Equal(t, "~user/x", expandHome("~user/x"))
	assert.Equal(t, "rel", expandHome("rel"))
}
