package supervisor

import (
	"fmt"
	"strings"
)

// binaryNotFoundError signals that no candidate server binaries exist on
// this machine. Fatal, never retried.
type binaryNotFoundError struct{}

func (binaryNotFoundError) Error() string {
	return "no inference server binaries found"
}

// ErrBinaryNotFound constructs a binaryNotFoundError.
func ErrBinaryNotFound() error { return binaryNotFoundError{} }

// IsBinaryNotFound reports whether err indicates a missing server binary.
func IsBinaryNotFound(err error) bool {
	_, ok := err.(binaryNotFoundError)
	return ok
}

// modelNotFoundError signals a bad model path supplied by the caller.
type modelNotFoundError struct{ path string }

func (e modelNotFoundError) Error() string { return "model file not found: " + e.path }

// ErrModelNotFound constructs a modelNotFoundError.
func ErrModelNotFound(path string) error { return modelNotFoundError{path: path} }

// IsModelNotFound reports whether err indicates a missing model file.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}

// notRunningError signals inference was attempted while no server runs.
type notRunningError struct{}

func (notRunningError) Error() string { return "inference server is not running" }

// ErrNotRunning constructs a notRunningError.
func ErrNotRunning() error { return notRunningError{} }

// IsNotRunning reports whether err indicates the supervisor is stopped.
func IsNotRunning(err error) bool {
	_, ok := err.(notRunningError)
	return ok
}

// startupFailedError is surfaced when the last candidate backend fails.
// Earlier backend failures are absorbed by the fallback loop.
type startupFailedError struct {
	backend string
	cause   error
}

func (e startupFailedError) Error() string {
	return fmt.Sprintf("inference server failed to start (backend %s): %v", e.backend, e.cause)
}

func (e startupFailedError) Unwrap() error { return e.cause }

// ErrStartupFailed constructs a startupFailedError.
func ErrStartupFailed(backend string, cause error) error {
	return startupFailedError{backend: backend, cause: cause}
}

// IsStartupFailed reports whether err is a final backend startup failure.
func IsStartupFailed(err error) bool {
	_, ok := err.(startupFailedError)
	return ok
}

// crashError describes a child process that exited before becoming healthy.
type crashError struct {
	exitCode   int
	state      string // e.g. "exit status 1" or "signal: killed"
	stderrTail string
	oomHint    bool
}

func (e crashError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "server process exited before becoming healthy (%s)", e.state)
	if e.oomHint {
		b.WriteString("; the OS likely killed it under memory pressure, try a smaller model or fewer GPU layers")
	}
	if e.stderrTail != "" {
		b.WriteString("; stderr tail: ")
		b.WriteString(e.stderrTail)
	}
	return b.String()
}

// IsProcessCrash reports whether err carries a startup crash diagnostic.
func IsProcessCrash(err error) bool {
	_, ok := err.(crashError)
	return ok
}

// httpStatusError is a non-2xx reply from the completion endpoint.
type httpStatusError struct {
	status int
	body   string
}

func (e httpStatusError) Error() string {
	return fmt.Sprintf("inference server returned HTTP %d: %s", e.status, e.body)
}

// ErrInferenceHTTP constructs an httpStatusError.
func ErrInferenceHTTP(status int, body string) error {
	return httpStatusError{status: status, body: body}
}

// IsInferenceHTTPError reports whether err is a non-2xx completion reply.
func IsInferenceHTTPError(err error) bool {
	_, ok := err.(httpStatusError)
	return ok
}

// emptyCompletionError: HTTP success but no extractable assistant text.
// Treated as a protocol violation, not a valid empty answer.
type emptyCompletionError struct{}

func (emptyCompletionError) Error() string {
	return "completion response contained no assistant text"
}

// ErrEmptyCompletion constructs an emptyCompletionError.
func ErrEmptyCompletion() error { return emptyCompletionError{} }

// IsEmptyCompletion reports whether err indicates an unextractable reply.
func IsEmptyCompletion(err error) bool {
	_, ok := err.(emptyCompletionError)
	return ok
}
