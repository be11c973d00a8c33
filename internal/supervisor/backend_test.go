package supervisor

import (
	"testing"

	"inferd/internal/binaries"
)

func linuxBins() map[binaries.Backend]string {
	return map[binaries.Backend]string{
		binaries.BackendVulkan: "/opt/bin/llama-server-vulkan",
		binaries.BackendCPU:    "/opt/bin/llama-server-cpu",
	}
}

func TestPlanAttemptsGPUFirst(t *testing.T) {
	s := New(Config{})
	attempts := s.planAttempts(linuxBins(), 32)
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}
	if attempts[0].backend != binaries.BackendVulkan || attempts[1].backend != binaries.BackendCPU {
		t.Fatalf("unexpected order: %+v", attempts)
	}
	if attempts[0].gpuLayers != 32 {
		t.Fatalf("gpu attempt must carry layer count, got %d", attempts[0].gpuLayers)
	}
	if attempts[1].gpuLayers != 0 {
		t.Fatalf("cpu attempt must not carry layers, got %d", attempts[1].gpuLayers)
	}
	if attempts[0].timeout != s.cfg.GPUAttemptTimeout {
		t.Fatalf("gpu attempt should fail fast, got %v", attempts[0].timeout)
	}
	if attempts[1].timeout != s.cfg.FinalAttemptTimeout {
		t.Fatalf("final attempt should get long timeout, got %v", attempts[1].timeout)
	}
}

func TestPlanAttemptsSkipsGPUAfterFailure(t *testing.T) {
	s := New(Config{})
	s.noteBackendFailure(binaries.BackendVulkan)
	attempts := s.planAttempts(linuxBins(), 32)
	if len(attempts) != 1 || attempts[0].backend != binaries.BackendCPU {
		t.Fatalf("expected cpu only, got %+v", attempts)
	}
	if attempts[0].timeout != s.cfg.FinalAttemptTimeout {
		t.Fatalf("single attempt should get the long timeout")
	}
}

func TestPlanAttemptsRememberedBackendFirst(t *testing.T) {
	s := New(Config{})
	s.mu.Lock()
	s.remembered = binaries.BackendCPU
	s.mu.Unlock()
	attempts := s.planAttempts(linuxBins(), 32)
	if len(attempts) != 1 || attempts[0].backend != binaries.BackendCPU {
		t.Fatalf("expected remembered cpu only, got %+v", attempts)
	}
}

func TestPlanAttemptsRememberedGPUKeepsCPUFallback(t *testing.T) {
	s := New(Config{})
	s.mu.Lock()
	s.remembered = binaries.BackendVulkan
	s.mu.Unlock()
	attempts := s.planAttempts(linuxBins(), 32)
	if len(attempts) != 2 || attempts[0].backend != binaries.BackendVulkan || attempts[1].backend != binaries.BackendCPU {
		t.Fatalf("unexpected order: %+v", attempts)
	}
}

func TestPlanAttemptsDarwinSingleBackend(t *testing.T) {
	s := New(Config{})
	bins := map[binaries.Backend]string{binaries.BackendMetal: "/Applications/x/llama-server"}
	attempts := s.planAttempts(bins, 40)
	if len(attempts) != 1 || attempts[0].backend != binaries.BackendMetal {
		t.Fatalf("expected metal only, got %+v", attempts)
	}
	if attempts[0].timeout != s.cfg.FinalAttemptTimeout {
		t.Fatalf("sole attempt should get the long timeout")
	}
	// Even after a GPU failure there is no other backend to fall to.
	s.noteBackendFailure(binaries.BackendMetal)
	attempts = s.planAttempts(bins, 40)
	if len(attempts) != 1 || attempts[0].backend != binaries.BackendMetal {
		t.Fatalf("expected metal retry, got %+v", attempts)
	}
}

func TestBuildArgs(t *testing.T) {
	at := attempt{backend: binaries.BackendVulkan, gpuLayers: 24}
	args := buildArgs("/m/x.gguf", 8601, 4096, 6, at)
	want := []string{"--model", "/m/x.gguf", "--host", "127.0.0.1", "--port", "8601",
		"--ctx-size", "4096", "--threads", "6", "--n-gpu-layers", "24"}
	if len(args) != len(want) {
		t.Fatalf("got %v", args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("arg %d: got %q want %q", i, args[i], want[i])
		}
	}

	cpu := attempt{backend: binaries.BackendCPU}
	args = buildArgs("/m/x.gguf", 8601, 4096, 6, cpu)
	for _, a := range args {
		if a == "--n-gpu-layers" {
			t.Fatalf("cpu attempt must not pass gpu layers: %v", args)
		}
	}
}
