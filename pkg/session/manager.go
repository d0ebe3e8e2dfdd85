package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/NikolayKlyatishev/vector-view/pkg/api"
	"github.com/NikolayKlyatishev/vector-view/pkg/debug"
	"github.com/NikolayKlyatishev/vector-view/pkg/embedding"
	"github.com/NikolayKlyatishev/vector-view/pkg/observability"
	"github.com/NikolayKlyatishev/vector-view/pkg/settings"
	"github.com/NikolayKlyatishev/vector-view/pkg/storage"
	"github.com/NikolayKlyatishev/vector-view/pkg/vectordb"
)

// Handles is the live binding of an open session. The three handles are
// either all set or all nil.
type Handles struct {
	Client     vectordb.Client
	Collection vectordb.Collection
	Model      embedding.Model
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithSearchRoots sets the directories probed for missing relative paths.
func WithSearchRoots(roots []string) Option {
	return func(m *Manager) {
		if len(roots) > 0 {
			m.roots = roots
		}
	}
}

// WithClock overrides the time source used for created_at and last_used.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithPreferences records the last used path, collection and model in prefs
// after each successful connect, when its remember_path preference is set.
func WithPreferences(prefs *settings.Store) Option {
	return func(m *Manager) { m.prefs = prefs }
}

// Manager owns the connection registry and the active session.
type Manager struct {
	store  storage.DocumentStore
	opener vectordb.Opener
	loader embedding.Loader
	prefs  *settings.Store
	logger *slog.Logger
	roots  []string
	now    func() time.Time

	// opMu serializes connect, disconnect and registry mutations.
	opMu sync.Mutex

	// mu guards the fields below.
	mu      sync.RWMutex
	reg     *registry
	handles *Handles
	initErr string
}

// New creates a Manager and loads the registry from store. An absent or
// unparseable registry starts empty.
func New(ctx context.Context, store storage.DocumentStore, opener vectordb.Opener, loader embedding.Loader, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		opener: opener,
		loader: loader,
		logger: slog.Default(),
		roots:  DefaultSearchRoots,
		now:    time.Now,
		reg:    newRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.load(ctx)
	observability.SessionConnected.Set(0)
	return m
}

func (m *Manager) load(ctx context.Context) {
	data, err := m.store.Load(ctx, storage.DocConnections)
	if errors.Is(err, storage.ErrNotFound) {
		debug.Log("session", "registry absent, starting empty")
		return
	}
	if err != nil {
		m.logger.Warn("loading connections failed, starting empty", "error", err)
		return
	}

	reg, err := decodeRegistry(data)
	if err != nil {
		m.logger.Warn("connections document unparseable, starting empty", "error", err)
		return
	}
	if reg.normalize() {
		m.logger.Warn("active connection pointer referenced a missing entry, cleared")
	}
	m.reg = reg
	debug.Log("session", "registry loaded", "connections", len(reg.order), "active", reg.active)
}

// encodeLocked encodes the registry. Callers hold mu and pass the result
// to save after releasing it.
func (m *Manager) encodeLocked() []byte {
	data, err := m.reg.encode()
	if err != nil {
		m.logger.Error("encoding connections failed", "error", err)
		return nil
	}
	return data
}

func (m *Manager) save(ctx context.Context, data []byte) {
	if data == nil {
		return
	}
	if err := m.store.Save(ctx, storage.DocConnections, data); err != nil {
		m.logger.Error("saving connections failed", "error", err)
	}
}

// Add inserts cfg and returns its id. A missing id is generated and a
// missing created_at is set to now. New entries are never active. Names and
// paths are not required to be unique.
func (m *Manager) Add(ctx context.Context, cfg api.ConnectionConfig) string {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if cfg.ID == "" {
		cfg.ID = api.NewConnectionID()
	}
	if cfg.CreatedAt == nil {
		ts := api.Timestamp(m.now())
		cfg.CreatedAt = &ts
	}
	cfg.IsActive = false

	m.mu.Lock()
	if existing, ok := m.reg.get(cfg.ID); ok {
		cfg.IsActive = existing.IsActive
	}
	m.reg.put(cfg)
	data := m.encodeLocked()
	m.mu.Unlock()

	m.save(ctx, data)
	debug.Log("session", "connection added", "id", cfg.ID, "name", cfg.Name)
	return cfg.ID
}

// Update replaces the mutable fields of connection id. The id is kept, as
// are created_at and last_used when cfg omits them. is_active keeps
// mirroring the active pointer. Reachability is not re-validated.
func (m *Manager) Update(ctx context.Context, id string, cfg api.ConnectionConfig) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	existing, ok := m.reg.get(id)
	if !ok {
		m.mu.Unlock()
		return notFound(id)
	}
	cfg.ID = id
	if cfg.CreatedAt == nil {
		cfg.CreatedAt = existing.CreatedAt
	}
	if cfg.LastUsed == nil {
		cfg.LastUsed = existing.LastUsed
	}
	cfg.IsActive = m.reg.active == id
	m.reg.put(cfg)
	data := m.encodeLocked()
	m.mu.Unlock()

	m.save(ctx, data)
	debug.Log("session", "connection updated", "id", id)
	return nil
}

// Delete removes connection id, disconnecting first when it is active.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.RLock()
	_, ok := m.reg.get(id)
	active := m.reg.active
	m.mu.RUnlock()
	if !ok {
		return notFound(id)
	}

	if active == id {
		m.disconnectLocked(ctx)
	}

	m.mu.Lock()
	m.reg.remove(id)
	data := m.encodeLocked()
	m.mu.Unlock()

	m.save(ctx, data)
	debug.Log("session", "connection deleted", "id", id)
	return nil
}

// Get returns a copy of connection id.
func (m *Manager) Get(id string) (api.ConnectionConfig, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.reg.get(id)
	if !ok {
		return api.ConnectionConfig{}, false
	}
	return *c, true
}

// List returns copies of all connections in insertion order.
func (m *Manager) List() []api.ConnectionConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reg.list()
}

// Connect opens the database, collection and model of connection id and
// makes it active. Any open session is closed first.
//
// On failure the partial session is torn down, the error is recorded as the
// initialization error and a configuration error is returned. The active
// pointer and the is_active flags are left as they were.
func (m *Manager) Connect(ctx context.Context, id string) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	cfg, ok := m.Get(id)
	if !ok {
		observability.ConnectTotal.WithLabelValues("not_found").Inc()
		return notFound(id)
	}

	m.closeHandles()

	start := m.now()
	h, err := m.open(ctx, cfg)
	if err != nil {
		m.mu.Lock()
		m.initErr = err.Error()
		m.mu.Unlock()

		observability.ConnectTotal.WithLabelValues("error").Inc()
		m.logger.Warn("connect failed", "id", id, "name", cfg.Name, "error", err)
		return api.NewConfigurationError(err.Error(), err)
	}

	now := api.Timestamp(m.now())
	m.mu.Lock()
	m.handles = h
	m.initErr = ""
	m.reg.setActive(id)
	if c, ok := m.reg.get(id); ok {
		c.LastUsed = &now
	}
	data := m.encodeLocked()
	m.mu.Unlock()

	m.save(ctx, data)
	observability.ConnectTotal.WithLabelValues("ok").Inc()
	observability.SessionConnected.Set(1)
	m.logger.Info("connected", "id", id, "name", cfg.Name, "path", cfg.DBPath,
		"collection", cfg.CollectionName, "model", cfg.EmbeddingModel,
		"duration", m.now().Sub(start))

	m.rememberPaths(ctx, cfg)
	return nil
}

// open builds the three session handles for cfg. Nothing is kept on error.
func (m *Manager) open(ctx context.Context, cfg api.ConnectionConfig) (*Handles, error) {
	path := cfg.DBPath
	if resolved, ok := resolvePath(path, m.roots); ok {
		path = resolved
	}

	client, err := m.opener.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", cfg.DBPath, err)
	}

	coll, err := client.Collection(ctx, cfg.CollectionName)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("loading collection %q: %w", cfg.CollectionName, err)
	}

	model, err := m.loader.Load(ctx, cfg.EmbeddingModel)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("loading model %q: %w", cfg.EmbeddingModel, err)
	}

	debug.Log("session", "session opened", "path", path, "collection", coll.Name(), "model", model.Name())
	return &Handles{Client: client, Collection: coll, Model: model}, nil
}

func (m *Manager) rememberPaths(ctx context.Context, cfg api.ConnectionConfig) {
	if m.prefs == nil || !m.prefs.BoolPreference(settings.PrefRememberPath, true) {
		return
	}
	m.prefs.SetLastDBPath(ctx, cfg.DBPath)
	m.prefs.SetLastCollection(ctx, cfg.CollectionName)
	m.prefs.SetLastModel(ctx, cfg.EmbeddingModel)
}

// Disconnect closes the session and clears the active pointer. Calling it
// while disconnected is a no-op apart from persisting the registry.
func (m *Manager) Disconnect(ctx context.Context) {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	m.disconnectLocked(ctx)
}

func (m *Manager) disconnectLocked(ctx context.Context) {
	m.closeHandles()

	m.mu.Lock()
	prev := m.reg.active
	m.reg.setActive("")
	data := m.encodeLocked()
	m.mu.Unlock()

	m.save(ctx, data)
	if prev != "" {
		debug.Log("session", "disconnected", "id", prev)
	}
}

// closeHandles drops the session handles and closes the client.
func (m *Manager) closeHandles() {
	m.mu.Lock()
	h := m.handles
	m.handles = nil
	m.mu.Unlock()

	observability.SessionConnected.Set(0)
	if h == nil {
		return
	}
	if err := h.Client.Close(); err != nil {
		m.logger.Warn("closing database client failed", "error", err)
	}
}

// IsConnected reports whether all session handles are loaded.
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connectedLocked()
}

func (m *Manager) connectedLocked() bool {
	h := m.handles
	return h != nil && h.Client != nil && h.Collection != nil && h.Model != nil
}

// Handles returns the current session handles. The returned value is a
// snapshot; callers borrow it for a single operation.
func (m *Manager) Handles() (Handles, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.connectedLocked() {
		return Handles{}, false
	}
	return *m.handles, true
}

// Active returns a copy of the active connection. A nil or dangling
// pointer yields false.
func (m *Manager) Active() (api.ConnectionConfig, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.reg.active == "" {
		return api.ConnectionConfig{}, false
	}
	c, ok := m.reg.get(m.reg.active)
	if !ok {
		return api.ConnectionConfig{}, false
	}
	return *c, true
}

// InitializationError returns the message of the last failed connect, or ""
// when the last connect succeeded.
func (m *Manager) InitializationError() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initErr
}

// Status returns a consistent view of the registry and the session.
func (m *Manager) Status() api.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := api.Status{
		IsConnected:      m.connectedLocked(),
		TotalConnections: len(m.reg.order),
		Connections:      m.reg.list(),
	}
	if c, ok := m.reg.get(m.reg.active); ok {
		active := *c
		st.ActiveConnectionID = &active.ID
		st.ActiveConnection = &active
	}
	return st
}

// DBStatus reports which handles are loaded and the last initialization
// error.
func (m *Manager) DBStatus() api.DBStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h := m.handles
	if h == nil {
		h = &Handles{}
	}
	return api.DBStatus{
		IsInitialized:      m.connectedLocked(),
		HasClient:          h.Client != nil,
		HasCollection:      h.Collection != nil,
		HasModel:           h.Model != nil,
		Error:              api.OptionalString(m.initErr),
		ActiveConnectionID: api.OptionalString(m.reg.active),
	}
}

// Validate probes path without touching the session or the registry.
// Missing relative paths are resolved against the search roots.
func (m *Manager) Validate(ctx context.Context, path, collection string) api.ValidationResult {
	path = strings.TrimSpace(path)
	if path == "" {
		return api.Invalid(vectordb.MsgPathNotSpecified)
	}
	resolved, ok := resolvePath(path, m.roots)
	if !ok {
		return vectordb.MissingPath(path)
	}
	if resolved != path {
		debug.Log("session", "resolved path", "path", path, "resolved", resolved)
	}
	return vectordb.Inspect(ctx, m.opener, resolved, collection)
}

// CreateCollection creates a collection in the store at path. The path is
// resolved like in Validate; a missing directory is created.
func (m *Manager) CreateCollection(ctx context.Context, path, name string, metadata map[string]string) (api.CollectionRef, error) {
	path = strings.TrimSpace(path)
	name = strings.TrimSpace(name)
	if path == "" {
		return api.CollectionRef{}, api.NewInvalidRequestError("db_path", vectordb.MsgPathNotSpecified)
	}
	if name == "" {
		return api.CollectionRef{}, api.NewInvalidRequestError("collection_name", "collection_name is required")
	}
	if resolved, ok := resolvePath(path, m.roots); ok {
		path = resolved
	}

	client, err := m.opener.Create(ctx, path)
	if err != nil {
		if errors.Is(err, vectordb.ErrNotDirectory) {
			return api.CollectionRef{}, api.NewInvalidRequestError("db_path", vectordb.MsgNotAFolder)
		}
		return api.CollectionRef{}, api.NewUpstreamError("opening database", err)
	}
	defer client.Close()

	coll, err := client.CreateCollection(ctx, name, metadata)
	if errors.Is(err, vectordb.ErrCollectionExists) {
		return api.CollectionRef{}, api.NewInvalidRequestError("collection_name",
			fmt.Sprintf("collection %q already exists", name))
	}
	if err != nil {
		return api.CollectionRef{}, api.NewUpstreamError("creating collection", err)
	}

	m.logger.Info("collection created", "path", path, "collection", name)
	return api.CollectionRef{Name: coll.Name(), ID: coll.ID()}, nil
}

func notFound(id string) *api.APIError {
	return api.NewNotFoundError(fmt.Sprintf("connection %q not found", id))
}
