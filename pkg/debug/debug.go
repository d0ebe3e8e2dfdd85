// Package debug provides category-based debug logging for vector-view.
//
// Two orthogonal controls:
//   - Categories (WHAT to debug): VECTOR_VIEW_DEBUG env or observability.debug
//   - Levels (HOW MUCH detail): VECTOR_VIEW_LOG_LEVEL env or observability.log_level
//
// Usage:
//
//	debug.Log("session", "connect", "id", id, "path", path)
//	if debug.Enabled("embedding") { /* expensive formatting */ }
//
// Categories: session, query, embedding, storage, transport, config, auth, all.
// Levels: ERROR, WARN, INFO, DEBUG, TRACE.
package debug

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync/atomic"
)

// Environment variables read by Init.
const (
	EnvCategories = "VECTOR_VIEW_DEBUG"
	EnvLevel      = "VECTOR_VIEW_LOG_LEVEL"
)

// LevelTrace is below slog.LevelDebug for maximum verbosity.
const LevelTrace = slog.LevelDebug - 4

// Known lists the categories understood by the packages of this module.
var Known = []string{"session", "query", "embedding", "storage", "transport", "config", "auth", "all"}

// categories is swapped atomically so Init may run while requests log.
var categories atomic.Pointer[map[string]bool]

func init() {
	setCategories(parseCategories(os.Getenv(EnvCategories)))
}

func setCategories(m map[string]bool) {
	categories.Store(&m)
}

// Init configures categories and the default slog handler. Environment
// values take precedence over the configured ones.
func Init(configCategories string, configLevel string) {
	cats := os.Getenv(EnvCategories)
	if cats == "" {
		cats = configCategories
	}
	setCategories(parseCategories(cats))

	level := os.Getenv(EnvLevel)
	if level == "" {
		level = configLevel
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})))
}

// Enabled reports whether debug output is active for the given category.
func Enabled(category string) bool {
	m := *categories.Load()
	return m["all"] || m[category]
}

// Log emits a debug message for the given category.
func Log(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Debug(msg, append([]any{"debug", category}, args...)...)
}

// Trace emits a trace-level message for the given category.
func Trace(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Log(context.Background(), LevelTrace, msg, append([]any{"debug", category}, args...)...)
}

// TraceIsEnabled reports whether TRACE level is active for the given category.
func TraceIsEnabled(category string) bool {
	if !Enabled(category) {
		return false
	}
	return slog.Default().Enabled(context.Background(), LevelTrace)
}

// Raw writes plain text to stderr when category is enabled at TRACE.
func Raw(category string, text string) {
	if !TraceIsEnabled(category) {
		return
	}
	fmt.Fprintln(os.Stderr, text)
}

// ParseLevel converts a level string to a slog.Level. Unknown values map
// to INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Categories returns the enabled categories in sorted order.
func Categories() []string {
	m := *categories.Load()
	result := make([]string, 0, len(m))
	for k := range m {
		result = append(result, k)
	}
	slices.Sort(result)
	return result
}

// Unknown returns the entries of a comma-separated category list that are
// not in Known.
func Unknown(list string) []string {
	var out []string
	for cat := range parseCategories(list) {
		if !slices.Contains(Known, cat) {
			out = append(out, cat)
		}
	}
	slices.Sort(out)
	return out
}

// Truncate returns s cut to maxLen runes, with "..." appended if it was cut.
func Truncate(s string, maxLen int) string {
	if maxLen < 0 {
		maxLen = 0
	}
	n := 0
	for i := range s {
		if n == maxLen {
			return s[:i] + "..."
		}
		n++
	}
	return s
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	for _, cat := range strings.Split(s, ",") {
		cat = strings.TrimSpace(strings.ToLower(cat))
		if cat != "" {
			m[cat] = true
		}
	}
	return m
}
