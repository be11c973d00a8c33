// Package manager coordinates the model registry and the process
// supervisor behind the HTTP API.
package manager

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"inferd/internal/llm"
	"inferd/internal/registry"
	"inferd/internal/supervisor"
	"inferd/pkg/types"
)

// Manager implements the httpapi Service interface on top of a scanned
// model registry and a single Supervisor.
type Manager struct {
	sup *supervisor.Supervisor
	log zerolog.Logger

	mu        sync.RWMutex
	modelsDir string
	models    []types.Model
}

// New builds a Manager over an already-scanned registry.
func New(models []types.Model, modelsDir string, sup *supervisor.Supervisor, log zerolog.Logger) *Manager {
	return &Manager{
		sup:       sup,
		log:       log,
		modelsDir: modelsDir,
		models:    append([]types.Model(nil), models...),
	}
}

// ListModels returns a copy of the current registry.
func (m *Manager) ListModels() []types.Model {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]types.Model(nil), m.models...)
}

// Rescan refreshes the registry from the models directory.
func (m *Manager) Rescan() error {
	m.mu.RLock()
	dir := m.modelsDir
	m.mu.RUnlock()
	models, err := registry.LoadDir(dir)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.models = models
	m.mu.Unlock()
	m.log.Info().Int("count", len(models)).Str("dir", dir).Msg("model registry rescanned")
	return nil
}

// Status reports the live supervisor state.
func (m *Manager) Status() types.StatusResponse { return m.sup.Status() }

// Ready reports whether a server is up and answering health checks.
func (m *Manager) Ready() bool { return m.sup.Status().Ready }

// StartModel resolves a registry id or absolute path and hands it to the
// supervisor.
func (m *Manager) StartModel(ctx context.Context, req types.StartRequest) error {
	path, ok := registry.Resolve(m.ListModels(), req.Model)
	if !ok {
		return supervisor.ErrModelNotFound(req.Model)
	}
	return m.sup.Start(ctx, path, supervisor.StartOptions{
		CtxSize:   req.CtxSize,
		Threads:   req.Threads,
		GPULayers: req.GPULayers,
	})
}

// StopModel tears down the running server if any.
func (m *Manager) StopModel() { m.sup.Stop() }

// ChatCompletion proxies one completion through the supervisor.
func (m *Manager) ChatCompletion(ctx context.Context, req types.ChatCompletionRequest) (string, error) {
	return m.sup.Complete(ctx, req.Messages, llm.Options{
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
}

// ResetBackendDetection forwards a detection reset to the supervisor.
func (m *Manager) ResetBackendDetection() { m.sup.ResetBackendDetection() }

// Close stops everything. Safe to call more than once.
func (m *Manager) Close() { m.sup.Stop() }
