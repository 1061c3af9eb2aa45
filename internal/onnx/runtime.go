// Package onnx wraps ONNX Runtime: locating the shared library, the
// process wide environment and float32 inference sessions.
package onnx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/yalue/onnxruntime_go"
)

// EnvLibraryPath overrides the shared library location.
const EnvLibraryPath = "NAGARIKTA_ONNXRUNTIME_LIB"

// ErrLibraryNotFound is returned when no ONNX Runtime shared library could
// be located.
var ErrLibraryNotFound = errors.New("onnxruntime shared library not found")

var envMu sync.Mutex

// libraryName returns the platform file name of the runtime library.
func libraryName(goos string) (string, error) {
	switch goos {
	case "linux":
		return "libonnxruntime.so", nil
	case "darwin":
		return "libonnxruntime.dylib", nil
	case "windows":
		return "onnxruntime.dll", nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s", goos)
	}
}

// candidateLibraryPaths lists where the library is looked for, in order:
// the environment override, system prefixes, then an onnxruntime directory
// next to the project's go.mod.
func candidateLibraryPaths(useGPU bool) []string {
	var out []string
	if p := os.Getenv(EnvLibraryPath); p != "" {
		out = append(out, p)
	}
	name, err := libraryName(runtime.GOOS)
	if err != nil {
		return out
	}
	if useGPU {
		out = append(out, filepath.Join("/opt/onnxruntime/gpu/lib", name))
	}
	out = append(out,
		filepath.Join("/usr/local/lib", name),
		filepath.Join("/usr/lib", name),
		filepath.Join("/opt/onnxruntime/cpu/lib", name),
	)
	if root, err := projectRoot(); err == nil {
		if useGPU {
			out = append(out, filepath.Join(root, "onnxruntime", "gpu", "lib", name))
		}
		out = append(out, filepath.Join(root, "onnxruntime", "lib", name))
	}
	return out
}

// LibraryPath returns the first existing runtime library.
func LibraryPath(useGPU bool) (string, error) {
	for _, p := range candidateLibraryPaths(useGPU) {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", ErrLibraryNotFound
}

// EnsureEnvironment points onnxruntime_go at the shared library and
// initializes the global environment once. Later calls are no-ops.
func EnsureEnvironment(useGPU bool) error {
	envMu.Lock()
	defer envMu.Unlock()
	if onnxruntime_go.IsInitialized() {
		return nil
	}
	lib, err := LibraryPath(useGPU)
	if err != nil {
		return err
	}
	onnxruntime_go.SetSharedLibraryPath(lib)
	if err := onnxruntime_go.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime from %s: %w", lib, err)
	}
	return nil
}

// Shutdown destroys the global environment. Call it once when the process
// no longer needs any session.
func Shutdown() error {
	envMu.Lock()
	defer envMu.Unlock()
	if !onnxruntime_go.IsInitialized() {
		return nil
	}
	return onnxruntime_go.DestroyEnvironment()
}

func projectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found")
		}
		dir = parent
	}
}
