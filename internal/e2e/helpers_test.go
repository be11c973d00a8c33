package e2e

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/binaries"
	"inferd/internal/httpapi"
	"inferd/internal/manager"
	"inferd/internal/registry"
	"inferd/internal/supervisor"
	"inferd/internal/tuning"
)

// createTempModelsDir creates a temporary directory populated with small
// .gguf files and returns the directory path and the list of model IDs.
func createTempModelsDir(t *testing.T, names ...string) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, []byte("GGUF"), 0o644); err != nil {
			t.Fatalf("write temp model %s: %v", p, err)
		}
	}
	return dir, names
}

// installFakeServer compiles the shared fake llama-server and installs it
// under the given backend binary names, returning the binaries directory.
func installFakeServer(t *testing.T, names ...string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("posix signal handling required")
	}
	tdir := t.TempDir()
	bin := filepath.Join(tdir, "fake_llama_server")
	cmd := exec.Command("go", "build", "-o", bin, "../supervisor/testdata/fake_llama_server.go")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build fake server: %v: %s", err, string(out))
	}
	data, err := os.ReadFile(bin)
	if err != nil {
		t.Fatalf("read fake server: %v", err)
	}
	dir := t.TempDir()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), data, 0o755); err != nil {
			t.Fatalf("install %s: %v", n, err)
		}
	}
	return dir
}

// newServerForDir stands up the full stack: registry scan, supervisor over
// binDir, manager, HTTP mux, test server.
func newServerForDir(t *testing.T, modelsDir, binDir string, portFrom, portTo int) (*httptest.Server, *manager.Manager) {
	t.Helper()
	reg, err := registry.NewGGUFScanner().Scan(modelsDir)
	if err != nil {
		t.Fatalf("scan models: %v", err)
	}
	sup := supervisor.New(supervisor.Config{
		Locator:             binaries.NewLocator(binDir, ""),
		Advisor:             tuning.NewAdvisor(2, 8),
		PortFrom:            portFrom,
		PortTo:              portTo,
		StartPollInterval:   25 * time.Millisecond,
		GPUAttemptTimeout:   5 * time.Second,
		FinalAttemptTimeout: 10 * time.Second,
		StopGrace:           500 * time.Millisecond,
	})
	mgr := manager.New(reg, modelsDir, sup, zerolog.Nop())
	t.Cleanup(mgr.Close)
	srv := httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(srv.Close)
	return srv, mgr
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
