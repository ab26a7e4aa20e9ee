//go:build !windows

package installer

import "os"

// replaceFile renames src over dst. Open handles to the old file, including
// mapped shared libraries, keep the previous inode alive.
func replaceFile(src, dst string) error {
	return os.Rename(src, dst)
}

func removeStale(string) {}
