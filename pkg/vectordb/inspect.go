package vectordb

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/NikolayKlyatishev/vector-view/pkg/api"
	"github.com/NikolayKlyatishev/vector-view/pkg/debug"
)

// Validation messages shared by connection and folder validation.
const (
	MsgPathNotSpecified = "database path not specified"
	MsgNotAFolder       = "path is not a folder"
	MsgValid            = "connection is valid"

	SuggestFolderPicker = "Check the path or use the folder picker to choose an existing folder."
	SuggestRelocate     = "Choose a folder in another location (for example inside the project) or grant access permissions."
)

// MissingPath returns the result reported for a path that does not exist.
func MissingPath(path string) api.ValidationResult {
	return api.ValidationResult{
		Valid:      false,
		Message:    "database path does not exist: " + path,
		Suggestion: SuggestFolderPicker,
	}
}

// Inspect probes path without resolving it against search roots: the path
// must exist and be a directory, and the store there must open and list its
// collections. When collection is non-empty the result reports whether it
// is present. Inspect never creates the directory.
func Inspect(ctx context.Context, opener Opener, path, collection string) api.ValidationResult {
	if strings.TrimSpace(path) == "" {
		return api.Invalid(MsgPathNotSpecified)
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return MissingPath(path)
	}
	if err != nil {
		return openFailure(err)
	}
	if !info.IsDir() {
		return api.Invalid(MsgNotAFolder)
	}

	client, err := opener.Open(ctx, path)
	if err != nil {
		return openFailure(err)
	}
	defer client.Close()

	cols, err := client.ListCollections(ctx)
	if err != nil {
		return openFailure(err)
	}

	refs := make([]api.CollectionRef, 0, len(cols))
	exists := collection == ""
	for _, c := range cols {
		refs = append(refs, api.CollectionRef{Name: c.Name(), ID: c.ID()})
		if c.Name() == collection {
			exists = true
		}
	}

	count := len(refs)
	debug.Log("session", "inspected store", "path", path, "collections", count)

	return api.ValidationResult{
		Valid:            true,
		Message:          MsgValid,
		CollectionsCount: &count,
		Collections:      refs,
		CollectionExists: &exists,
		TargetCollection: &collection,
		DBInfo:           describeDir(path),
	}
}

// openFailure converts an open or list failure into an invalid result.
// Permission problems get a relocation suggestion.
func openFailure(err error) api.ValidationResult {
	if IsPermission(err) {
		return api.ValidationResult{
			Valid:      false,
			Message:    fmt.Sprintf("no permission to access folder: %v", err),
			Suggestion: SuggestRelocate,
		}
	}
	return api.Invalid(fmt.Sprintf("database connection failed: %v", err))
}

// IsPermission reports whether err is a permission failure, including the
// "operation not permitted" errors raised by sandboxed file systems.
func IsPermission(err error) bool {
	if errors.Is(err, fs.ErrPermission) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "operation not permitted") || strings.Contains(msg, "permission denied")
}

func describeDir(path string) *api.DBInfo {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	info := &api.DBInfo{Path: abs, Exists: true, IsDir: true, Files: []string{}}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return info
	}
	for _, e := range entries {
		info.Files = append(info.Files, filepath.Join(abs, e.Name()))
	}
	return info
}
