// Package tabular reads and writes datasets in spreadsheet and columnar file
// formats.
//
// Formats register themselves by name and file extension in init(). Callers
// usually resolve a format from a path:
//
//	f, err := tabular.ForPath("audit_result.xlsx", logger)
//	ds, err := f.Read(ctx, "hubspot_export.xlsx", tabular.ReadOptions{NullPolicy: dataset.DefaultNullPolicy()})
package tabular

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/leadaudit/pkg/dataset"
)

// ReadOptions controls how a file is turned into a dataset.
type ReadOptions struct {
	// Sheet selects a worksheet for workbook formats. Empty means the first.
	Sheet string
	// NullPolicy classifies text cells as absent.
	NullPolicy dataset.NullPolicy
}

// Format reads and writes one file format.
type Format interface {
	// Name returns the registry name, e.g. "xlsx".
	Name() string
	// Read loads the whole file. Column and row order are preserved.
	Read(ctx context.Context, path string, opts ReadOptions) (*dataset.Dataset, error)
	// Write persists ds to path. Either the complete file is written or
	// the destination is left untouched.
	Write(ctx context.Context, path string, ds *dataset.Dataset) error
}

// Factory creates a Format bound to a logger.
type Factory func(*slog.Logger) Format

type registration struct {
	factory    Factory
	extensions []string
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]registration)
	extensions = make(map[string]string)
)

// Register adds a format and the file extensions it handles.
// Called by format implementations in their init() functions.
func Register(name string, factory Factory, exts ...string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = registration{factory: factory, extensions: exts}
	for _, ext := range exts {
		extensions[strings.ToLower(ext)] = name
	}
}

// Get creates the named format. A nil logger discards output.
func Get(name string, logger *slog.Logger) (Format, error) {
	registryMu.RLock()
	reg, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownFormatError{Format: name, Available: Formats()}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return reg.factory(logger), nil
}

// ForPath resolves the format from the file extension of path.
func ForPath(path string, logger *slog.Logger) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	registryMu.RLock()
	name, ok := extensions[ext]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownFormatError{Path: path, Format: ext, Available: Formats()}
	}
	return Get(name, logger)
}

// Formats returns all registered format names (sorted).
func Formats() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Extensions returns every registered file extension without the leading
// dot (sorted).
func Extensions() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	exts := make([]string, 0, len(extensions))
	for ext := range extensions {
		exts = append(exts, strings.TrimPrefix(ext, "."))
	}
	sort.Strings(exts)
	return exts
}

// UnknownFormatError is returned when no format handles a name or extension.
type UnknownFormatError struct {
	Path      string
	Format    string
	Available []string
}

func (e *UnknownFormatError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("unsupported file type %q for %s\nSupported formats: %v", e.Format, e.Path, e.Available)
	}
	return fmt.Sprintf("unknown format %q\nSupported formats: %v", e.Format, e.Available)
}
