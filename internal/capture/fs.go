package capture

import (
	"os"
	"path/filepath"
)

// filepathWalk walks dir, calling fn with each regular file's path
// relative to dir. Same walk shape as internal/testutil.ReadFiles, which
// enumerates a temp dir's contents for test assertions; here it backs
// CreatedFiles reporting for filesystem isolation instead.
func filepathWalk(dir string, fn func(rel string)) error {
	return filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		fn(rel)
		return nil
	})
}
