// Package binaries resolves the on-disk llama-server binaries available for
// each compute backend on the current platform.
package binaries

import (
	"path/filepath"
	"runtime"
	"sync"

	"inferd/internal/common/fsutil"
)

// Backend identifies a compute path for the inference server.
type Backend string

const (
	BackendCPU    Backend = "cpu"
	BackendVulkan Backend = "vulkan"
	BackendMetal  Backend = "metal"
)

// GPUAccelerated reports whether the backend uses the GPU.
func (b Backend) GPUAccelerated() bool {
	return b == BackendVulkan || b == BackendMetal
}

// Locator finds candidate server binaries under an ordered list of search
// directories (packaged resources first, then a development fallback). The
// result is cached for the process lifetime; Reset clears the cache after
// backend detection state is wiped.
type Locator struct {
	mu     sync.Mutex
	dirs   []string
	goos   string
	cached map[Backend]string
}

// NewLocator builds a Locator over the given search directories. Empty
// directory entries are skipped.
func NewLocator(resourcesDir, devBinDir string) *Locator {
	return newLocatorForOS(runtime.GOOS, resourcesDir, devBinDir)
}

func newLocatorForOS(goos, resourcesDir, devBinDir string) *Locator {
	var dirs []string
	for _, d := range []string{resourcesDir, devBinDir} {
		if d != "" {
			dirs = append(dirs, d)
		}
	}
	return &Locator{dirs: dirs, goos: goos}
}

// binaryNames returns the per-backend file names for the platform. Darwin
// ships a single Metal-enabled binary; everywhere else a Vulkan and a
// CPU-only variant exist side by side.
func binaryNames(goos string) map[Backend]string {
	switch goos {
	case "darwin":
		return map[Backend]string{BackendMetal: "llama-server"}
	case "windows":
		return map[Backend]string{
			BackendVulkan: "llama-server-vulkan.exe",
			BackendCPU:    "llama-server-cpu.exe",
		}
	default:
		return map[Backend]string{
			BackendVulkan: "llama-server-vulkan",
			BackendCPU:    "llama-server-cpu",
		}
	}
}

// Locate returns a mapping of backend to the absolute path of every
// candidate binary that exists on disk. An empty map means no candidates;
// that is not an error here, callers treat it as a fatal precondition.
func (l *Locator) Locate() map[Backend]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cached != nil {
		return l.cached
	}
	found := make(map[Backend]string)
	for backend, name := range binaryNames(l.goos) {
		for _, dir := range l.dirs {
			p := filepath.Join(dir, name)
			if fsutil.FileExists(p) {
				found[backend] = p
				break
			}
		}
	}
	l.cached = found
	return found
}

// Reset discards the cached lookup so the next Locate stats the disk again.
func (l *Locator) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cached = nil
}
