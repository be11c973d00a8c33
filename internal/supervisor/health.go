package supervisor

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"inferd/internal/ports"
)

// probeHealth issues one bounded-timeout health request. Any 2xx means the
// server is accepting requests.
func (s *Supervisor) probeHealth(ctx context.Context, port int, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	url := fmt.Sprintf("http://%s:%d/health", ports.Loopback, port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// awaitHealthy polls the spawned process until it answers the health
// endpoint, it exits, or the per-backend timeout elapses.
func (s *Supervisor) awaitHealthy(ctx context.Context, c *child, port int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if c.exited() {
			return c.crashDiagnostic()
		}
		if s.probeHealth(ctx, port, s.cfg.StartPollInterval*4) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("server not healthy within %s on port %d", timeout, port)
		}
		select {
		case <-c.done:
			// handled at loop top
		case <-time.After(s.cfg.StartPollInterval):
		}
	}
}

// monitor runs steady-state health checks while the child is adopted.
// Consecutive failures past the threshold flip the supervisor to Degraded;
// the process is not killed, this is a signal for callers. Any success
// resets the counter. The loop ends when the process exits or on stop.
func (s *Supervisor) monitor(c *child, port int, stop chan struct{}) {
	ticker := time.NewTicker(s.cfg.HealthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-c.done:
			s.handleUnexpectedExit(c)
			return
		case <-ticker.C:
		}
		if s.probeHealth(context.Background(), port, s.cfg.HealthProbeTimeout) {
			s.recordProbe(true)
			continue
		}
		healthProbeFailures.Inc()
		if fails := s.recordProbe(false); fails == s.cfg.HealthThreshold {
			s.log.Warn().Int("consecutive_failures", fails).Int("port", port).
				Msg("inference server degraded: repeated health probe failures")
		}
	}
}

// recordProbe updates the consecutive-failure counter and the degraded
// flag, returning the counter value after the update.
func (s *Supervisor) recordProbe(ok bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		s.healthFails = 0
		s.degraded = false
		return 0
	}
	s.healthFails++
	if s.healthFails >= s.cfg.HealthThreshold {
		s.degraded = true
	}
	return s.healthFails
}

// handleUnexpectedExit clears state after the child died outside Stop.
func (s *Supervisor) handleUnexpectedExit(c *child) {
	diag := c.crashDiagnostic()
	s.mu.Lock()
	if s.child != c {
		// A newer start already replaced this child.
		s.mu.Unlock()
		return
	}
	s.child = nil
	s.monStop = nil
	s.running = false
	s.ready = false
	s.degraded = false
	s.port = 0
	s.modelPath = ""
	s.backend = ""
	s.mu.Unlock()
	s.log.Error().Str("state", diag.state).Str("stderr_tail", diag.stderrTail).
		Msg("inference server exited unexpectedly")
}
