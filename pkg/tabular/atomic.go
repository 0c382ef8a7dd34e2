package tabular

import (
	"fmt"
	"os"
	"path/filepath"
)

// writeAtomic calls write with a temporary path next to dest and renames the
// result into place once write succeeds. On failure the temporary file is
// removed and dest is not touched.
func writeAtomic(dest string, write func(tmp string) error) (err error) {
	dir := filepath.Dir(dest)
	f, err := os.CreateTemp(dir, ".leadaudit-*"+filepath.Ext(dest))
	if err != nil {
		return fmt.Errorf("failed to create temporary file in %s: %w", dir, err)
	}
	tmp := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	// Some writers refuse to overwrite an existing file.
	if err := os.Remove(tmp); err != nil {
		return fmt.Errorf("failed to prepare temporary file: %w", err)
	}

	if err := write(tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, dest); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}
