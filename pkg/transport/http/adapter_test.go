package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/NikolayKlyatishev/vector-view/pkg/api"
	"github.com/NikolayKlyatishev/vector-view/pkg/config"
	"github.com/NikolayKlyatishev/vector-view/pkg/embedding/embeddingtest"
	"github.com/NikolayKlyatishev/vector-view/pkg/query"
	"github.com/NikolayKlyatishev/vector-view/pkg/session"
	"github.com/NikolayKlyatishev/vector-view/pkg/settings"
	"github.com/NikolayKlyatishev/vector-view/pkg/storage/memory"
	"github.com/NikolayKlyatishev/vector-view/pkg/vectordb"
	"github.com/NikolayKlyatishev/vector-view/pkg/vectordb/vectordbtest"
)

// env is a fully wired adapter over in-memory fakes.
type env struct {
	t       *testing.T
	opener  *vectordbtest.Opener
	manager *session.Manager
	holder  *config.Holder
	prefs   *settings.Store
	handler http.Handler
}

func newEnv(t *testing.T, opts ...ServerOption) *env {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	opener := vectordbtest.NewOpener()
	prefs := settings.Load(ctx, store, nil)
	manager := session.New(ctx, store, opener, &embeddingtest.Loader{}, session.WithPreferences(prefs))
	cfg := config.Defaults()
	holder := config.NewHolder(&cfg, "")

	svc := Services{
		Connections: manager,
		Queries:     query.New(manager, opener),
		Settings:    holder,
		Preferences: prefs,
	}
	adapterCfg := DefaultConfig()
	adapterCfg.MaxBodySize = 4096
	adapterCfg.MetricsHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "# metrics")
	})
	srv := NewServer(svc, adapterCfg, opts...)

	return &env{t: t, opener: opener, manager: manager, holder: holder, prefs: prefs, handler: srv.Handler()}
}

// seed registers a store at path with a "docs" collection of n documents.
func (e *env) seed(path string, n int) {
	var recs []vectordb.Record
	for i := 0; i < n; i++ {
		doc := fmt.Sprintf("document number %d", i)
		schema := "guide"
		if i%2 == 1 {
			schema = "faq"
		}
		recs = append(recs, vectordb.Record{
			ID:        fmt.Sprintf("doc-%02d", i),
			Document:  doc,
			Metadata:  map[string]string{"schema": schema},
			Embedding: embeddingtest.HashVector(doc, embeddingtest.DefaultDim),
		})
	}
	e.opener.AddStore(path).AddCollection("docs", map[string]string{"source": "test"}, recs...)
}

// connect adds a connection to path and activates it.
func (e *env) connect(path string) string {
	e.t.Helper()
	e.seed(path, 45)
	id := e.manager.Add(context.Background(), api.ConnectionConfig{
		Name: "test", DBPath: path, CollectionName: "docs", EmbeddingModel: "test-model",
	})
	if err := e.manager.Connect(context.Background(), id); err != nil {
		e.t.Fatalf("connect: %v", err)
	}
	return id
}

func (e *env) do(method, target string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var r *http.Request
	switch b := body.(type) {
	case nil:
		r = httptest.NewRequest(method, target, nil)
	case string:
		r = httptest.NewRequest(method, target, strings.NewReader(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			e.t.Fatalf("marshal: %v", err)
		}
		r = httptest.NewRequest(method, target, bytes.NewReader(data))
	}
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, r)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["error"]
}

func TestQueriesWhileDisconnected(t *testing.T) {
	e := newEnv(t)

	for _, tc := range []struct{ method, target string }{
		{"GET", "/api/collections"},
		{"GET", "/api/chunks"},
		{"GET", "/api/vectors"},
	} {
		rec := e.do(tc.method, tc.target, nil)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("%s %s: status = %d, want 500", tc.method, tc.target, rec.Code)
		}
		if msg := errorMessage(t, rec); !strings.HasPrefix(msg, "database unavailable") {
			t.Errorf("%s %s: error = %q", tc.method, tc.target, msg)
		}
	}
}

func TestCollections(t *testing.T) {
	e := newEnv(t)
	e.connect("/db/main")

	rec := e.do("GET", "/api/collections", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	cols := decode[[]map[string]any](t, rec)
	if len(cols) != 1 || cols[0]["name"] != "docs" || cols[0]["document_count"] != float64(45) {
		t.Errorf("collections = %v", cols)
	}
}

func TestChunksPagination(t *testing.T) {
	e := newEnv(t)
	e.connect("/db/main")

	rec := e.do("GET", "/api/chunks?page=3&per_page=20", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	page := decode[api.ChunkPage](t, rec)
	if page.TotalPages != 3 || page.TotalCount != 45 || len(page.Chunks) != 5 {
		t.Errorf("page = %d chunks, total %d, pages %d", len(page.Chunks), page.TotalCount, page.TotalPages)
	}

	rec = e.do("GET", "/api/chunks", nil)
	if page := decode[api.ChunkPage](t, rec); page.Page != 1 || page.PerPage != 20 {
		t.Errorf("defaults = page %d per_page %d", page.Page, page.PerPage)
	}
}

func TestBadQueryParameters(t *testing.T) {
	e := newEnv(t)
	e.connect("/db/main")

	tests := []struct {
		target  string
		wantMsg string
	}{
		{"/api/chunks?page=abc", "page must be an integer"},
		{"/api/chunks?per_page=1.5", "per_page must be an integer"},
		{"/api/chunks?page=0", "page"},
		{"/api/vectors?limit=ten", "limit must be an integer"},
		{"/api/vectors?limit=0", "limit"},
	}
	for _, tt := range tests {
		rec := e.do("GET", tt.target, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tt.target, rec.Code)
			continue
		}
		if msg := errorMessage(t, rec); !strings.Contains(msg, tt.wantMsg) {
			t.Errorf("%s: error = %q, want it to contain %q", tt.target, msg, tt.wantMsg)
		}
	}
}

func TestSearch(t *testing.T) {
	e := newEnv(t)
	e.connect("/db/main")

	rec := e.do("POST", "/api/search", map[string]any{"query": "document number 4", "schema_filter": "guide", "top_k": 3})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	res := decode[api.SearchResponse](t, rec)
	if res.Query != "document number 4" || res.TopK != 3 || len(res.Results) != 3 {
		t.Fatalf("response = %+v", res)
	}
	if res.SchemaFilter == nil || *res.SchemaFilter != "guide" {
		t.Errorf("schema_filter = %v", res.SchemaFilter)
	}
	if res.Results[0].ID != "doc-04" {
		t.Errorf("nearest = %s, want doc-04", res.Results[0].ID)
	}
	for _, r := range res.Results {
		if r.Metadata["schema"] != "guide" {
			t.Errorf("result %s has schema %q", r.ID, r.Metadata["schema"])
		}
	}
}

func TestSearchRejectsBadInput(t *testing.T) {
	e := newEnv(t)
	e.connect("/db/main")

	tests := []struct {
		name string
		body any
		want int
	}{
		{"empty query", map[string]any{"query": ""}, http.StatusBadRequest},
		{"missing body", nil, http.StatusBadRequest},
		{"malformed json", `{"query":`, http.StatusBadRequest},
		{"wrong type", `{"query": 5}`, http.StatusBadRequest},
		{"too large", `{"query": "` + strings.Repeat("x", 5000) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do("POST", "/api/search", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
			if errorMessage(t, rec) == "" {
				t.Error("missing error message")
			}
		})
	}
}

func TestVectors(t *testing.T) {
	e := newEnv(t)
	e.connect("/db/main")

	rec := e.do("GET", "/api/vectors?limit=10&schema=faq", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	res := decode[api.VectorsResponse](t, rec)
	if res.TotalCount != 10 || len(res.Vectors) != 10 {
		t.Errorf("vectors = %d, total %d", len(res.Vectors), res.TotalCount)
	}
	if res.SchemaFilter == nil || *res.SchemaFilter != "faq" {
		t.Errorf("schema_filter = %v", res.SchemaFilter)
	}
	v := res.Vectors[0]
	if len(v.FullVector) != embeddingtest.DefaultDim || v.X != v.FullVector[0] || v.Y != v.FullVector[1] {
		t.Errorf("point = %+v", v)
	}
}

func TestValidationEndpointsAlways200(t *testing.T) {
	e := newEnv(t)
	file := filepath.Join(t.TempDir(), "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		target  string
		body    any
		wantMsg string
	}{
		{"folder empty", "/api/validate-folder", map[string]string{"folder_path": ""}, "not specified"},
		{"folder missing", "/api/validate-folder", map[string]string{"folder_path": "/definitely/not/a/real/path"}, "does not exist"},
		{"folder is file", "/api/validate-folder", map[string]string{"folder_path": file}, "not a folder"},
		{"folder bad json", "/api/validate-folder", `{"folder_path":`, "Validation error"},
		{"connection empty", "/api/connections/validate", map[string]string{"db_path": "", "collection_name": "x"}, "not specified"},
		{"connection missing", "/api/connections/validate", map[string]string{"db_path": "/definitely/not/a/real/path", "collection_name": "x"}, "does not exist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do("POST", tt.target, tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			res := decode[api.ValidationResult](t, rec)
			if res.Valid {
				t.Error("valid = true")
			}
			if !strings.Contains(strings.ToLower(res.Message), strings.ToLower(tt.wantMsg)) {
				t.Errorf("message = %q, want it to contain %q", res.Message, tt.wantMsg)
			}
		})
	}
}

func TestConnectionLifecycle(t *testing.T) {
	e := newEnv(t)
	e.seed("/db/a", 3)

	// Missing fields are rejected.
	rec := e.do("POST", "/api/connections", map[string]string{"name": "a", "db_path": "/db/a"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("incomplete add: status = %d", rec.Code)
	}
	if msg := errorMessage(t, rec); !strings.Contains(msg, "collection_name") {
		t.Errorf("error = %q, want it to name collection_name", msg)
	}

	rec = e.do("POST", "/api/connections", api.ConnectionInput{
		Name: "a", DBPath: "/db/a", CollectionName: "docs", EmbeddingModel: "test-model", Description: "first",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: status = %d: %s", rec.Code, rec.Body)
	}
	added := decode[connectionResponse](t, rec)
	id := added.ConnectionID
	if id == "" || added.Connection == nil || added.Connection.IsActive {
		t.Fatalf("add response = %+v", added)
	}

	rec = e.do("PUT", "/api/connections/"+id, api.ConnectionInput{
		Name: "renamed", DBPath: "/db/a", CollectionName: "docs", EmbeddingModel: "test-model",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status = %d: %s", rec.Code, rec.Body)
	}
	if got := decode[connectionResponse](t, rec).Connection; got.Name != "renamed" || got.CreatedAt == nil {
		t.Errorf("updated = %+v", got)
	}

	rec = e.do("POST", "/api/connections/"+id+"/connect", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("connect: status = %d: %s", rec.Code, rec.Body)
	}
	st := decode[connectionResponse](t, rec).Status
	if st == nil || !st.IsConnected || st.ActiveConnectionID == nil || *st.ActiveConnectionID != id {
		t.Errorf("status after connect = %+v", st)
	}

	rec = e.do("GET", "/api/db-status", nil)
	if db := decode[api.DBStatus](t, rec); !db.IsInitialized || !db.HasModel {
		t.Errorf("db-status = %+v", db)
	}

	rec = e.do("POST", "/api/connections/disconnect", nil)
	if st := decode[connectionResponse](t, rec).Status; st.IsConnected || st.ActiveConnectionID != nil {
		t.Errorf("status after disconnect = %+v", st)
	}

	rec = e.do("DELETE", "/api/connections/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status = %d", rec.Code)
	}
	rec = e.do("GET", "/api/connections", nil)
	if st := decode[api.Status](t, rec); st.TotalConnections != 0 || st.Connections == nil {
		t.Errorf("status after delete = %+v", st)
	}
}

func TestConnectionNotFound(t *testing.T) {
	e := newEnv(t)
	input := api.ConnectionInput{Name: "x", DBPath: "/db/x", CollectionName: "docs", EmbeddingModel: "m"}

	for _, tc := range []struct {
		method, target string
		body           any
	}{
		{"PUT", "/api/connections/nope", input},
		{"DELETE", "/api/connections/nope", nil},
		{"POST", "/api/connections/nope/connect", nil},
	} {
		rec := e.do(tc.method, tc.target, tc.body)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: status = %d, want 404", tc.method, tc.target, rec.Code)
		}
	}
}

func TestConnectFailureKeepsActive(t *testing.T) {
	e := newEnv(t)
	good := e.connect("/db/good")
	bad := e.manager.Add(context.Background(), api.ConnectionConfig{
		Name: "bad", DBPath: "/db/missing", CollectionName: "docs", EmbeddingModel: "m",
	})

	rec := e.do("POST", "/api/connections/"+bad+"/connect", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if msg := errorMessage(t, rec); !strings.Contains(msg, "/db/missing") {
		t.Errorf("error = %q", msg)
	}

	st := decode[api.Status](t, e.do("GET", "/api/connections", nil))
	if st.IsConnected {
		t.Error("session should be closed after a failed connect")
	}
	if st.ActiveConnectionID == nil || *st.ActiveConnectionID != good {
		t.Errorf("active pointer = %v, want %s", st.ActiveConnectionID, good)
	}
}

func TestCreateCollection(t *testing.T) {
	e := newEnv(t)

	rec := e.do("POST", "/api/connections/create-collection", map[string]any{
		"db_path": "/db/new", "collection_name": "fresh", "metadata": map[string]string{"owner": "ops"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if res := decode[createCollectionResponse](t, rec); res.Collection.Name != "fresh" || res.Collection.ID == "" {
		t.Errorf("response = %+v", res)
	}

	rec = e.do("POST", "/api/connections/create-collection", map[string]any{"db_path": "/db/new", "collection_name": "fresh"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate: status = %d, want 400", rec.Code)
	}
	rec = e.do("POST", "/api/connections/create-collection", map[string]any{"db_path": "", "collection_name": "x"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty path: status = %d, want 400", rec.Code)
	}
}

func TestSettings(t *testing.T) {
	e := newEnv(t)

	got := decode[config.Settings](t, e.do("GET", "/api/settings", nil))
	if got.DBPath != config.DefaultDBPath || got.Port != config.DefaultPort {
		t.Errorf("settings = %+v", got)
	}

	rec := e.do("POST", "/api/settings", map[string]any{"chroma_db_path": "/srv/chroma", "flask_debug": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status = %d: %s", rec.Code, rec.Body)
	}
	res := decode[updateSettingsResponse](t, rec)
	if !res.Success || res.Settings.DBPath != "/srv/chroma" || !res.Settings.Debug {
		t.Errorf("response = %+v", res)
	}
	if e.holder.Current().Database.Path != "/srv/chroma" {
		t.Error("holder was not updated")
	}
	if _, set := os.LookupEnv("CHROMA_DB_PATH"); set {
		t.Error("settings update must not touch the process environment")
	}

	rec = e.do("POST", "/api/settings", map[string]any{"flask_port": 0})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid port: status = %d, want 400", rec.Code)
	}
	if e.holder.Current().Server.Port != config.DefaultPort {
		t.Error("a rejected update must keep the current settings")
	}
}

func TestPreferences(t *testing.T) {
	e := newEnv(t)

	prefs := decode[settings.Preferences](t, e.do("GET", "/api/preferences", nil))
	if prefs.LastModel != settings.DefaultModel || prefs.Preferences[settings.PrefRememberPath] != true {
		t.Errorf("defaults = %+v", prefs)
	}

	rec := e.do("POST", "/api/preferences", map[string]any{"preferences": map[string]any{"auto_connect": true}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	prefs = decode[settings.Preferences](t, rec)
	if prefs.Preferences["auto_connect"] != true || prefs.Preferences[settings.PrefRememberPath] != true {
		t.Errorf("merged = %+v", prefs.Preferences)
	}

	// Connecting records the path when remember_path is on.
	e.connect("/db/remembered")
	if got := e.prefs.Get().LastDBPath; got != "/db/remembered" {
		t.Errorf("last_db_path = %q", got)
	}
}

func TestHealthAndReadiness(t *testing.T) {
	e := newEnv(t)

	if rec := e.do("GET", "/healthz", nil); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}
	if rec := e.do("GET", "/readyz", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz while disconnected = %d, want 503", rec.Code)
	}
	e.connect("/db/main")
	if rec := e.do("GET", "/readyz", nil); rec.Code != http.StatusOK {
		t.Errorf("readyz while connected = %d", rec.Code)
	}
	if rec := e.do("GET", "/metrics", nil); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "# metrics") {
		t.Errorf("metrics = %d %s", rec.Code, rec.Body)
	}
}

func TestRequestIDHeader(t *testing.T) {
	e := newEnv(t)
	rec := e.do("GET", "/healthz", nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}

func TestHTMLViews(t *testing.T) {
	e := newEnv(t)

	// Disconnected: data pages show the error page.
	rec := e.do("GET", "/collections", nil)
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), "database unavailable") {
		t.Errorf("/collections disconnected = %d", rec.Code)
	}

	e.connect("/db/main")
	tests := []struct {
		target string
		want   string
	}{
		{"/", "Active connection"},
		{"/collections", "docs"},
		{"/chunks?page=2", "page 2 of 3"},
		{"/search", `id="search"`},
		{"/vectors", `id="plot"`},
		{"/settings", `name="chroma_db_path"`},
		{"/connections", "(active)"},
	}
	for _, tt := range tests {
		rec := e.do("GET", tt.target, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d", tt.target, rec.Code)
			continue
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("%s: Content-Type = %q", tt.target, ct)
		}
		if !strings.Contains(rec.Body.String(), tt.want) {
			t.Errorf("%s: body does not contain %q", tt.target, tt.want)
		}
	}

	if rec := e.do("GET", "/chunks?page=x", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("/chunks?page=x = %d, want 400", rec.Code)
	}
	if rec := e.do("GET", "/nope", nil); rec.Code != http.StatusNotFound {
		t.Errorf("/nope = %d, want 404", rec.Code)
	}
}
