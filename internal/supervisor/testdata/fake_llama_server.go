package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// Fake llama-server used by supervisor tests. Accepts the argument subset
// the supervisor passes and serves /health plus /v1/chat/completions.
// Behavior toggles via environment:
//   FAKE_FAIL_VULKAN=1   binaries named *vulkan* print to stderr and exit 7
//   FAKE_IGNORE_TERM=1   SIGTERM is ignored, forcing the kill escalation
//   FAKE_SLOW_START_MS=n delay before the listener comes up
func main() {
	var model, host, port string
	var ctxSize, threads, gpuLayers int
	flag.StringVar(&model, "model", "", "model path")
	flag.StringVar(&host, "host", "127.0.0.1", "host")
	flag.StringVar(&port, "port", "0", "port")
	flag.IntVar(&ctxSize, "ctx-size", 0, "context size")
	flag.IntVar(&threads, "threads", 0, "threads")
	flag.IntVar(&gpuLayers, "n-gpu-layers", 0, "gpu layers")
	flag.Parse()

	self := filepath.Base(os.Args[0])
	if strings.Contains(self, "vulkan") && os.Getenv("FAKE_FAIL_VULKAN") == "1" {
		fmt.Fprintln(os.Stderr, "ggml_vulkan: device memory allocation failed")
		os.Exit(7)
	}
	if ms := os.Getenv("FAKE_SLOW_START_MS"); ms != "" {
		var n int
		fmt.Sscanf(ms, "%d", &n)
		time.Sleep(time.Duration(n) * time.Millisecond)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		last := ""
		if len(req.Messages) > 0 {
			last = req.Messages[len(req.Messages)-1].Content
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"content": "echo: " + last}},
			},
		})
	})

	srv := &http.Server{Addr: host + ":" + port, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	if os.Getenv("FAKE_IGNORE_TERM") == "1" {
		signal.Ignore(syscall.SIGTERM)
		signal.Notify(sigCh, syscall.SIGINT)
	} else {
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	}
	<-sigCh
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
