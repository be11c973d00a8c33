package supervisor

import (
	"strconv"
	"time"

	"inferd/internal/binaries"
	"inferd/internal/ports"
)

// attempt describes one (backend, binary, timeout) combination tried
// during startup. Platform differences reduce to which list is built.
type attempt struct {
	backend   binaries.Backend
	binPath   string
	timeout   time.Duration
	gpuLayers int // 0 means the flag is omitted (CPU attempts)
}

// planAttempts orders candidate backends for one start. GPU-accelerated
// variants go first unless a GPU startup already failed this session; a
// backend that won before is tried immediately. The final attempt always
// gets the longer timeout so a slow CPU model load is not cut short.
func (s *Supervisor) planAttempts(bins map[binaries.Backend]string, gpuLayers int) []attempt {
	var order []binaries.Backend
	s.mu.Lock()
	remembered := s.remembered
	gpuFailed := s.gpuFailed
	s.mu.Unlock()

	appendIfPresent := func(b binaries.Backend) {
		if _, ok := bins[b]; !ok {
			return
		}
		for _, have := range order {
			if have == b {
				return
			}
		}
		order = append(order, b)
	}

	if remembered != "" {
		appendIfPresent(remembered)
		if remembered.GPUAccelerated() {
			appendIfPresent(binaries.BackendCPU)
		}
	} else {
		if !gpuFailed {
			appendIfPresent(binaries.BackendVulkan)
			appendIfPresent(binaries.BackendMetal)
		}
		appendIfPresent(binaries.BackendCPU)
	}
	if len(order) == 0 {
		// Remembered backend disappeared, or GPU previously failed and no
		// CPU variant exists (darwin). Fall back to whatever is on disk.
		appendIfPresent(binaries.BackendVulkan)
		appendIfPresent(binaries.BackendMetal)
		appendIfPresent(binaries.BackendCPU)
	}

	attempts := make([]attempt, 0, len(order))
	for i, b := range order {
		at := attempt{backend: b, binPath: bins[b]}
		if i == len(order)-1 {
			at.timeout = s.cfg.FinalAttemptTimeout
		} else {
			at.timeout = s.cfg.GPUAttemptTimeout
		}
		if b.GPUAccelerated() {
			at.gpuLayers = gpuLayers
		}
		attempts = append(attempts, at)
	}
	return attempts
}

// buildArgs assembles the server argument list for one attempt.
func buildArgs(modelPath string, port, ctxSize, threads int, at attempt) []string {
	args := []string{
		"--model", modelPath,
		"--host", ports.Loopback,
		"--port", strconv.Itoa(port),
		"--ctx-size", strconv.Itoa(ctxSize),
		"--threads", strconv.Itoa(threads),
	}
	if at.gpuLayers > 0 {
		args = append(args, "--n-gpu-layers", strconv.Itoa(at.gpuLayers))
	}
	return args
}
