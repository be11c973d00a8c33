// Package supervisor owns the lifecycle of the local inference server: it
// picks a binary per compute backend, spawns it, polls it healthy, falls
// back across backends, keeps watching it, and tears it down.
package supervisor

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/binaries"
	"inferd/internal/common/fsutil"
	"inferd/internal/llm"
	"inferd/internal/ports"
	"inferd/internal/tuning"
	"inferd/pkg/types"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultPortFrom            = 8600
	defaultPortTo              = 8699
	defaultCtxSize             = 4096
	defaultTemperature         = 0.2
	defaultMaxTokens           = 1024
	defaultStartPollInterval   = 250 * time.Millisecond
	defaultGPUAttemptTimeout   = 20 * time.Second
	defaultFinalAttemptTimeout = 60 * time.Second
	defaultStopGrace           = 5 * time.Second
	defaultHealthInterval      = 10 * time.Second
	defaultHealthProbeTimeout  = 3 * time.Second
	defaultHealthThreshold     = 3
	defaultCompletionTimeout   = 300 * time.Second
)

// Config encapsulates all tunables for Supervisor construction.
type Config struct {
	Locator *binaries.Locator
	Advisor *tuning.Advisor

	PortFrom int
	PortTo   int
	CtxSize  int

	Temperature float64
	MaxTokens   int

	StartPollInterval   time.Duration
	GPUAttemptTimeout   time.Duration
	FinalAttemptTimeout time.Duration
	StopGrace           time.Duration

	HealthInterval     time.Duration
	HealthProbeTimeout time.Duration
	HealthThreshold    int

	CompletionTimeout time.Duration

	// Embedded routes completions through the in-process runtime instead
	// of spawning a server binary (requires the 'llama' build variant).
	Embedded bool

	Logger zerolog.Logger
}

// StartOptions are per-start overrides; zero values fall back to config or
// advisor values.
type StartOptions struct {
	CtxSize   int
	Threads   int
	GPULayers int
}

// startResult is the shared outcome of one in-flight start. Concurrent
// callers attach to it instead of spawning a second process.
type startResult struct {
	done chan struct{}
	err  error
}

// Supervisor owns at most one child server process at a time. All state
// mutation goes through its synchronized entry points.
type Supervisor struct {
	cfg    Config
	client *client
	log    zerolog.Logger

	mu          sync.Mutex
	inflight    *startResult
	running     bool
	ready       bool
	degraded    bool
	port        int
	modelPath   string
	backend     binaries.Backend
	child       *child
	embedded    llm.Completer
	monStop     chan struct{}
	healthFails int
	remembered  binaries.Backend
	gpuFailed   bool
}

// New constructs a Supervisor, applying defaults for unset Config fields.
func New(cfg Config) *Supervisor {
	if cfg.Locator == nil {
		cfg.Locator = binaries.NewLocator("", "")
	}
	if cfg.Advisor == nil {
		cfg.Advisor = tuning.NewAdvisor(0, 0)
	}
	if cfg.PortFrom <= 0 {
		cfg.PortFrom = defaultPortFrom
	}
	if cfg.PortTo < cfg.PortFrom {
		cfg.PortTo = defaultPortTo
	}
	if cfg.CtxSize <= 0 {
		cfg.CtxSize = defaultCtxSize
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.StartPollInterval <= 0 {
		cfg.StartPollInterval = defaultStartPollInterval
	}
	if cfg.GPUAttemptTimeout <= 0 {
		cfg.GPUAttemptTimeout = defaultGPUAttemptTimeout
	}
	if cfg.FinalAttemptTimeout <= 0 {
		cfg.FinalAttemptTimeout = defaultFinalAttemptTimeout
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = defaultStopGrace
	}
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = defaultHealthInterval
	}
	if cfg.HealthProbeTimeout <= 0 {
		cfg.HealthProbeTimeout = defaultHealthProbeTimeout
	}
	if cfg.HealthThreshold <= 0 {
		cfg.HealthThreshold = defaultHealthThreshold
	}
	if cfg.CompletionTimeout <= 0 {
		cfg.CompletionTimeout = defaultCompletionTimeout
	}
	return &Supervisor{
		cfg:    cfg,
		client: newClient(cfg.CompletionTimeout),
		log:    cfg.Logger,
	}
}

// Start brings up a server for modelPath. Calling it again for the model
// already running is a no-op. At most one start is in flight; a concurrent
// caller attaches to the in-flight attempt's result.
func (s *Supervisor) Start(ctx context.Context, modelPath string, opts StartOptions) error {
	if !fsutil.FileExists(modelPath) {
		return modelNotFoundError{path: modelPath}
	}

	s.mu.Lock()
	if s.running && s.modelPath == modelPath && (s.child == nil || !s.child.exited()) {
		s.mu.Unlock()
		return nil
	}
	if r := s.inflight; r != nil {
		s.mu.Unlock()
		<-r.done
		return r.err
	}
	r := &startResult{done: make(chan struct{})}
	s.inflight = r
	s.mu.Unlock()

	// A different model (or a dead process) may still be attached; stop it
	// fully before attempting anything.
	s.stopCurrent()

	err := s.doStart(ctx, modelPath, opts)

	s.mu.Lock()
	s.inflight = nil
	s.mu.Unlock()
	r.err = err
	close(r.done)
	return err
}

func (s *Supervisor) doStart(ctx context.Context, modelPath string, opts StartOptions) error {
	if s.cfg.Embedded {
		return s.startEmbedded(modelPath, opts)
	}

	bins := s.cfg.Locator.Locate()
	if len(bins) == 0 {
		return binaryNotFoundError{}
	}

	ctxSize := opts.CtxSize
	if ctxSize <= 0 {
		ctxSize = s.cfg.CtxSize
	}
	threads := opts.Threads
	if threads <= 0 {
		threads = s.cfg.Advisor.Threads(tuning.WorkloadReasoning)
	}
	gpuLayers := opts.GPULayers
	if gpuLayers <= 0 {
		gpuLayers = s.cfg.Advisor.GPULayers()
	}

	attempts := s.planAttempts(bins, gpuLayers)
	var lastErr error
	for _, at := range attempts {
		// A fresh port per attempt: the previous process may not have
		// released its port yet, and the bind race resolves on retry.
		port, err := ports.FindPort(s.cfg.PortFrom, s.cfg.PortTo)
		if err != nil {
			return err
		}
		args := buildArgs(modelPath, port, ctxSize, threads, at)
		s.log.Info().Str("backend", string(at.backend)).Int("port", port).
			Str("model", filepath.Base(modelPath)).Msg("starting inference server")

		c, err := spawnChild(at.binPath, args)
		if err != nil {
			lastErr = err
			startsTotal.WithLabelValues(string(at.backend), "spawn_error").Inc()
			s.noteBackendFailure(at.backend)
			continue
		}
		if err := s.awaitHealthy(ctx, c, port, at.timeout); err != nil {
			c.kill()
			lastErr = err
			startsTotal.WithLabelValues(string(at.backend), "unhealthy").Inc()
			s.noteBackendFailure(at.backend)
			s.log.Warn().Str("backend", string(at.backend)).Err(err).
				Msg("backend attempt failed")
			continue
		}

		s.adopt(c, port, modelPath, at.backend)
		startsTotal.WithLabelValues(string(at.backend), "ok").Inc()
		s.log.Info().Str("backend", string(at.backend)).Int("port", port).
			Int("pid", c.pid()).Msg("inference server ready")
		return nil
	}
	final := attempts[len(attempts)-1]
	return startupFailedError{backend: string(final.backend), cause: lastErr}
}

func (s *Supervisor) startEmbedded(modelPath string, opts StartOptions) error {
	ctxSize := opts.CtxSize
	if ctxSize <= 0 {
		ctxSize = s.cfg.CtxSize
	}
	threads := opts.Threads
	if threads <= 0 {
		threads = s.cfg.Advisor.Threads(tuning.WorkloadReasoning)
	}
	comp, err := llm.NewEmbedded(modelPath, ctxSize, threads)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.embedded = comp
	s.running = true
	s.ready = true
	s.degraded = false
	s.modelPath = modelPath
	s.backend = "embedded"
	s.mu.Unlock()
	s.log.Info().Str("model", filepath.Base(modelPath)).Msg("embedded runtime loaded")
	return nil
}

// adopt records a healthy child as the active server and begins steady-
// state health monitoring.
func (s *Supervisor) adopt(c *child, port int, modelPath string, backend binaries.Backend) {
	stop := make(chan struct{})
	s.mu.Lock()
	s.child = c
	s.port = port
	s.modelPath = modelPath
	s.backend = backend
	s.running = true
	s.ready = true
	s.degraded = false
	s.healthFails = 0
	s.remembered = backend
	if backend.GPUAccelerated() {
		s.gpuFailed = false
	}
	s.monStop = stop
	s.mu.Unlock()
	go s.monitor(c, port, stop)
}

// noteBackendFailure remembers a GPU startup failure so the next start in
// this session goes straight to CPU. Kept in memory only; a cold start
// re-probes from scratch.
func (s *Supervisor) noteBackendFailure(b binaries.Backend) {
	if !b.GPUAccelerated() {
		return
	}
	s.mu.Lock()
	s.gpuFailed = true
	if s.remembered == b {
		s.remembered = ""
	}
	s.mu.Unlock()
}

// Stop tears down the current process if any. Safe to call when already
// stopped. If a start is in flight, Stop waits for it to settle first so
// the two never race over the same child.
func (s *Supervisor) Stop() {
	for {
		s.mu.Lock()
		r := s.inflight
		if r == nil {
			s.mu.Unlock()
			break
		}
		s.mu.Unlock()
		<-r.done
	}
	s.stopCurrent()
}

// stopCurrent detaches and terminates the active child (or embedded
// runtime) and resets all state fields.
func (s *Supervisor) stopCurrent() {
	s.mu.Lock()
	c := s.child
	emb := s.embedded
	mon := s.monStop
	s.child = nil
	s.embedded = nil
	s.monStop = nil
	s.running = false
	s.ready = false
	s.degraded = false
	s.port = 0
	s.modelPath = ""
	s.backend = ""
	s.mu.Unlock()

	if mon != nil {
		close(mon)
	}
	if c != nil {
		s.log.Info().Int("pid", c.pid()).Msg("stopping inference server")
		c.stop(s.cfg.StopGrace)
	}
	if emb != nil {
		_ = emb.Close()
	}
}

// Complete runs one inference against the active server. Fails with a
// not-running error while stopped or starting.
func (s *Supervisor) Complete(ctx context.Context, messages []types.ChatMessage, opts llm.Options) (string, error) {
	s.mu.Lock()
	running := s.running
	port := s.port
	emb := s.embedded
	s.mu.Unlock()
	if !running {
		completionsTotal.WithLabelValues("not_running").Inc()
		return "", notRunningError{}
	}
	if opts.Temperature <= 0 {
		opts.Temperature = s.cfg.Temperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = s.cfg.MaxTokens
	}
	var (
		text string
		err  error
	)
	if emb != nil {
		text, err = emb.Complete(ctx, messages, opts)
	} else {
		text, err = s.client.Complete(ctx, port, messages, opts)
	}
	if err != nil {
		completionsTotal.WithLabelValues("error").Inc()
		return "", err
	}
	completionsTotal.WithLabelValues("ok").Inc()
	return text, nil
}

// Status is a synchronous read-only projection of the supervisor state.
func (s *Supervisor) Status() types.StatusResponse {
	available := len(s.cfg.Locator.Locate()) > 0 || (s.cfg.Embedded && llm.EmbeddedAvailable())
	s.mu.Lock()
	defer s.mu.Unlock()
	resp := types.StatusResponse{
		Available: available,
		Running:   s.running,
		Ready:     s.ready,
		Degraded:  s.degraded,
		Port:      s.port,
		ModelPath: s.modelPath,
		Backend:   string(s.backend),
	}
	if s.modelPath != "" {
		resp.ModelName = filepath.Base(s.modelPath)
	}
	resp.GPUAccelerated = s.backend.GPUAccelerated()
	return resp
}

// ResetBackendDetection wipes the remembered backend outcome and the
// binary cache so the next start re-probes from scratch.
func (s *Supervisor) ResetBackendDetection() {
	s.mu.Lock()
	s.remembered = ""
	s.gpuFailed = false
	s.mu.Unlock()
	s.cfg.Locator.Reset()
}
