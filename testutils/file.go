package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

// WriteTempFile writes data to a file named name in a fresh temporary directory and
// returns its path. The directory is removed when the test ends.
func WriteTempFile(t testing.TB, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	test.That(t, os.WriteFile(path, data, 0o600), test.ShouldBeNil)
	return path
}
