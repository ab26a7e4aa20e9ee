//go:build windows

package installer

import (
	"fmt"
	"os"
)

// replaceFile installs src at dst. A loaded DLL or running executable cannot
// be overwritten on Windows but can be renamed, so the current file is moved
// to dst.old first and restored if the final rename fails.
func replaceFile(src, dst string) error {
	old := dst + ".old"
	_ = os.Remove(old)

	moved := false
	if _, err := os.Stat(dst); err == nil {
		if err := os.Rename(dst, old); err != nil {
			return fmt.Errorf("moving %s aside: %w", dst, err)
		}
		moved = true
	}

	if err := os.Rename(src, dst); err != nil {
		if moved {
			_ = os.Rename(old, dst)
		}
		return err
	}

	if moved {
		// Fails while the old file is still loaded; removeStale retries later.
		_ = os.Remove(old)
	}
	return nil
}

// removeStale deletes a leftover dst.old from a previous install.
func removeStale(dst string) {
	_ = os.Remove(dst + ".old")
}
