// Package testutil provides synthetic card photos, scripted OCR output and
// environment helpers shared by the package and integration tests.
package testutil

import (
	"path/filepath"
	"testing"
)

// Isolate runs the test in a fresh temporary directory with HOME and
// XDG_CONFIG_HOME pointing inside it, so no user configuration leaks in.
// It returns the directory.
func Isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	return dir
}
