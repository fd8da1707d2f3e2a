// Package fileio implements the silent creating write: persist buffer
// contents to a path that may not exist yet, parent directories included.
package fileio

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rogpeppe/go-internal/lockedfile"
	"gopkg.in/retry.v1"
)

// writeStrategy bounds how long a creating write is retried before its
// failure is handed back to the caller. Transient contention (editor writing
// the same file, slow network mount waking up) usually clears within this
// window.
var writeStrategy = retry.Regular{
	Total: 500 * time.Millisecond,
	Delay: 100 * time.Millisecond,
	Min:   2,
}

// Write persists data to path, creating missing parent directories. The file
// is written under an exclusive lock so a concurrent writer of the same path
// cannot interleave with us.
func Write(path string, data []byte) error {
	if path == "" {
		return fmt.Errorf("fileio: refusing to write empty path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			// Keep going: the write below reports the authoritative error,
			// and the directory may exist despite MkdirAll failing (e.g. a
			// permission race).
			if _, statErr := os.Stat(dir); statErr != nil {
				return fmt.Errorf("fileio: create %v: %v", dir, err)
			}
		}
	}
	var err error
	for a := retry.Start(writeStrategy, nil); a.Next(); {
		if err = lockedfile.Write(path, bytes.NewReader(data), 0o644); err == nil {
			return nil
		}
	}
	return fmt.Errorf("fileio: write %v: %v", path, err)
}
