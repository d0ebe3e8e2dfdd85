// Package transport holds the HTTP plumbing shared by the vector-view
// servers: the service interfaces the HTTP adapter depends on, the
// middleware chain, and the JSON error encoding.
//
// # Service Interfaces
//
// The adapter in transport/http talks to the core only through the
// interfaces in this package:
//
//   - ConnectionService: the connection registry and the active session
//   - QueryService: read-only queries against the active session
//   - PreferenceService: the persisted user preferences
//   - SettingsService: the runtime configuration shown on the settings page
//
// # Middleware
//
// Middleware are plain func(http.Handler) http.Handler values composed
// with Chain. Built-in middleware provides panic recovery, request ID
// assignment (X-Request-ID) and access logging via log/slog.
//
// # Errors
//
// Failed requests are answered with {"error": message}. The status code is
// derived from the api.ErrorType of the error.
package transport
