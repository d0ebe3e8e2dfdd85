// Package query implements the read operations of vector-view over the
// active session: listing collections, paging through chunks, semantic
// search and fetching vectors for the 2D view.
//
// The façade keeps no handles of its own. Each call borrows the current
// handles from its [SessionSource] once and uses that snapshot until it
// returns, so a concurrent connect or disconnect never mixes two sessions
// within one operation.
package query
