package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"
)

// stderrTailBytes is how much of the child's stderr is retained for
// diagnostics when startup fails.
const stderrTailBytes = 4096

// tailBuffer is an io.Writer that keeps only the last N bytes written.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func newTailBuffer(limit int) *tailBuffer { return &tailBuffer{limit: limit} }

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.limit {
		t.buf = t.buf[len(t.buf)-t.limit:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}

// child is the single-owner handle for one spawned server process. Stop
// must be called on every exit path; the supervisor is the only owner.
type child struct {
	cmd    *exec.Cmd
	stderr *tailBuffer

	done    chan struct{}
	waitErr error
}

// libPathEnvVar names the shared-library search-path variable the child
// needs so the server binary finds its bundled libraries.
func libPathEnvVar() string {
	switch runtime.GOOS {
	case "darwin":
		return "DYLD_LIBRARY_PATH"
	case "windows":
		return "PATH"
	default:
		return "LD_LIBRARY_PATH"
	}
}

// spawnChild starts binPath with args, inheriting the environment plus the
// binary's directory on the library search path, and begins reaping it.
func spawnChild(binPath string, args []string) (*child, error) {
	cmd := exec.Command(binPath, args...)
	envVar := libPathEnvVar()
	binDir := filepath.Dir(binPath)
	env := os.Environ()
	if cur := os.Getenv(envVar); cur != "" {
		env = append(env, envVar+"="+binDir+string(os.PathListSeparator)+cur)
	} else {
		env = append(env, envVar+"="+binDir)
	}
	cmd.Env = env
	tail := newTailBuffer(stderrTailBytes)
	cmd.Stderr = tail
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", filepath.Base(binPath), err)
	}
	c := &child{cmd: cmd, stderr: tail, done: make(chan struct{})}
	go func() {
		c.waitErr = cmd.Wait()
		close(c.done)
	}()
	return c, nil
}

func (c *child) pid() int {
	if c.cmd != nil && c.cmd.Process != nil {
		return c.cmd.Process.Pid
	}
	return 0
}

// exited reports whether the process has terminated.
func (c *child) exited() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// signalStop asks the process to terminate gracefully. Windows has no
// usable termination signal, so it goes straight to Kill there.
func (c *child) signalStop() {
	if c.cmd == nil || c.cmd.Process == nil {
		return
	}
	if runtime.GOOS == "windows" {
		_ = c.cmd.Process.Kill()
		return
	}
	_ = c.cmd.Process.Signal(syscall.SIGTERM)
}

// stop terminates the process: graceful signal, bounded grace period, then
// a forced kill. It returns once the process has exited.
func (c *child) stop(grace time.Duration) {
	if c.cmd == nil || c.cmd.Process == nil {
		return
	}
	c.signalStop()
	select {
	case <-c.done:
		return
	case <-time.After(grace):
	}
	_ = c.cmd.Process.Kill()
	<-c.done
}

// kill force-terminates immediately. Used when abandoning a failed startup
// attempt before moving to the next backend.
func (c *child) kill() {
	if c.cmd == nil || c.cmd.Process == nil {
		return
	}
	_ = c.cmd.Process.Kill()
	<-c.done
}

// crashDiagnostic captures why the process died before becoming healthy:
// exit state, a stderr tail, and an out-of-memory hint when the state
// indicates the OS killed it.
func (c *child) crashDiagnostic() crashError {
	<-c.done
	state := "exited"
	code := -1
	if ps := c.cmd.ProcessState; ps != nil {
		state = ps.String()
		code = ps.ExitCode()
	} else if c.waitErr != nil {
		state = c.waitErr.Error()
	}
	return crashError{
		exitCode:   code,
		state:      state,
		stderrTail: c.stderr.String(),
		oomHint:    strings.Contains(state, "killed"),
	}
}
