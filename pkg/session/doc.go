// Package session implements the connection registry and the session
// manager of vector-view.
//
// The [Manager] owns the set of named [api.ConnectionConfig] entries, the
// active connection pointer, and the live [Handles] (database client,
// collection, embedding model) bound to the active connection. It is the
// single source of truth for connection state: every other component asks
// [Manager.Status] or borrows handles through [Manager.Handles] instead of
// caching its own copy.
//
// Registry changes are persisted to a [storage.DocumentStore] after every
// mutation. The in-memory state is authoritative; a failed write is logged
// and never returned.
package session
