// Package storage defines the document store used to persist the connection
// registry and user preferences, plus the sentinel errors shared by its
// backends.
//
// A document is an opaque JSON body stored under a short name
// ("connections", "user_settings"). Backends (file, memory, postgres) live
// in subpackages and implement [DocumentStore].
package storage
