package transport

import (
	"context"

	"github.com/NikolayKlyatishev/vector-view/pkg/api"
	"github.com/NikolayKlyatishev/vector-view/pkg/config"
	"github.com/NikolayKlyatishev/vector-view/pkg/settings"
)

// ConnectionService manages saved connections and the active session.
type ConnectionService interface {
	Add(ctx context.Context, cfg api.ConnectionConfig) string
	Update(ctx context.Context, id string, cfg api.ConnectionConfig) error
	Delete(ctx context.Context, id string) error
	Get(id string) (api.ConnectionConfig, bool)
	List() []api.ConnectionConfig

	Connect(ctx context.Context, id string) error
	Disconnect(ctx context.Context)
	IsConnected() bool
	Status() api.Status
	DBStatus() api.DBStatus

	// Validate probes a folder without changing any state.
	Validate(ctx context.Context, path, collection string) api.ValidationResult
	CreateCollection(ctx context.Context, path, name string, metadata map[string]string) (api.CollectionRef, error)
}

// QueryService answers read-only queries against the active session.
type QueryService interface {
	ListCollections(ctx context.Context) ([]api.CollectionInfo, error)
	Chunks(ctx context.Context, page, perPage int) (api.ChunkPage, error)
	Search(ctx context.Context, req api.SearchRequest) (api.SearchResponse, error)
	Vectors(ctx context.Context, limit int, schema string) (api.VectorsResponse, error)
	ValidateFolder(ctx context.Context, path string) api.ValidationResult
}

// PreferenceService exposes the persisted user preferences.
type PreferenceService interface {
	Get() settings.Preferences
	Update(ctx context.Context, patch settings.Patch)
}

// SettingsService exposes the editable part of the runtime configuration.
// Update validates the patched configuration and publishes it atomically.
type SettingsService interface {
	Current() *config.Config
	Update(patch config.SettingsPatch) (*config.Config, error)
}
