// Package api defines the records exchanged between the vector-view core
// and its callers.
//
// The package performs no I/O. It holds the connection descriptor persisted
// in the registry, the status views produced by the session manager, the
// result records produced by the query façade, and the typed error taxonomy
// shared by every layer:
//
//   - [ConnectionConfig]: named, durable descriptor of a database folder
//   - [Status], [DBStatus]: the single source of truth for connection state
//   - [ValidationResult]: outcome of a reachability probe
//   - [CollectionInfo], [ChunkPage], [SearchResponse], [VectorsResponse]
//   - [APIError]: typed outcome (configuration, invalid request, not found,
//     unavailable, upstream)
//
// JSON field names match the documents written by earlier releases, so
// existing registry and preference files keep loading.
package api
