package session

import (
	"context"

	"github.com/NikolayKlyatishev/vector-view/pkg/api"
)

// DefaultConnectionName names the connection created from startup
// configuration.
const DefaultConnectionName = "default"

// BootstrapConfig is the database configured at startup.
type BootstrapConfig struct {
	DBPath         string
	CollectionName string
	EmbeddingModel string
}

// Bootstrap restores a session at startup. The persisted active connection
// is reconnected when there is one. Otherwise, when cfg names an existing
// directory, a connection called "default" is found or added and connected.
//
// A missing database is a normal state: failures are recorded as the
// initialization error and logged, and the server keeps running.
func (m *Manager) Bootstrap(ctx context.Context, cfg BootstrapConfig) {
	if active, ok := m.Active(); ok {
		m.logger.Info("restoring active connection", "id", active.ID, "name", active.Name)
		if err := m.Connect(ctx, active.ID); err != nil {
			m.logger.Warn("database unavailable at startup", "error", err)
		}
		return
	}

	if cfg.DBPath == "" {
		m.logger.Info("no database configured, starting disconnected")
		return
	}
	if _, ok := resolvePath(cfg.DBPath, m.roots); !ok {
		m.mu.Lock()
		m.initErr = "database path does not exist: " + cfg.DBPath
		m.mu.Unlock()
		m.logger.Warn("configured database path not found, starting disconnected", "path", cfg.DBPath)
		return
	}

	id := m.findDefault(cfg)
	if id == "" {
		id = m.Add(ctx, api.ConnectionConfig{
			Name:           DefaultConnectionName,
			DBPath:         cfg.DBPath,
			CollectionName: cfg.CollectionName,
			EmbeddingModel: cfg.EmbeddingModel,
		})
	}
	if err := m.Connect(ctx, id); err != nil {
		m.logger.Warn("database unavailable at startup", "path", cfg.DBPath, "error", err)
	}
}

// findDefault returns the id of a connection matching cfg, preferring one
// named "default".
func (m *Manager) findDefault(cfg BootstrapConfig) string {
	var match string
	for _, c := range m.List() {
		if c.DBPath != cfg.DBPath || c.CollectionName != cfg.CollectionName || c.EmbeddingModel != cfg.EmbeddingModel {
			continue
		}
		if c.Name == DefaultConnectionName {
			return c.ID
		}
		if match == "" {
			match = c.ID
		}
	}
	return match
}
