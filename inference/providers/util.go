package providers

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// LibraryEnv overrides the ONNX Runtime shared library location.
const LibraryEnv = "SEGPIPE_ORT_LIB"

// SharedLibPath returns the path to the ONNX Runtime shared library for the current platform.
//
// Arguments:
//   - configured: An explicit path; empty falls back to LibraryEnv and then the bundled
//     third_party library for this platform.
//
// Returns:
//   - string: The path to the shared library.
//   - error: When no library is known for this platform.
func SharedLibPath(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if env := os.Getenv(LibraryEnv); env != "" {
		return env, nil
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join("third_party", "onnxruntime.dll"), nil
	case "darwin":
		return filepath.Join("third_party", "libonnxruntime.dylib"), nil
	case "linux":
		if runtime.GOARCH == "arm64" {
			return filepath.Join("third_party", "onnxruntime_arm64.so"), nil
		}
		return filepath.Join("third_party", "onnxruntime.so"), nil
	}
	return "", errors.Errorf("no onnxruntime library known for %s/%s", runtime.GOOS, runtime.GOARCH)
}

// InitializeEnvironment loads the shared library and prepares the runtime once per process.
//
// Arguments:
//   - libPath: The shared library path from SharedLibPath.
//
// Returns:
//   - error: When the library is missing or fails to load.
func InitializeEnvironment(libPath string) error {
	if ort.IsInitialized() {
		return nil
	}
	if _, err := os.Stat(libPath); err != nil {
		return errors.Wrapf(err, "onnxruntime library not found at %s", libPath)
	}

	ort.SetSharedLibraryPath(libPath)
	return errors.Wrap(ort.InitializeEnvironment(), "initializing onnxruntime environment")
}
