package cachefile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Invalidate removes the API station artifact so the next page load
// re-aggregates. It reports whether a file was removed; a missing file is
// not an error.
func Invalidate(path string) (bool, error) {
	err := os.Remove(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		// Nothing cached yet
		return false, nil
	default:
		return false, fmt.Errorf("failed to remove station cache %s: %w", path, err)
	}
}
