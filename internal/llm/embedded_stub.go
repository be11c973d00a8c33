//go:build !llama

package llm

import "errors"

// This stub compiles when the 'llama' build tag is NOT set, keeping default
// builds and CI CGO-free. The real runtime lives in embedded.go.

var llamaBuilt = false

// ErrEmbeddedUnavailable is returned when the in-process runtime was not
// compiled into this binary.
var ErrEmbeddedUnavailable = errors.New("embedded llama support not built (missing 'llama' build tag)")

// NewEmbedded fails fast: the in-process runtime is not in this build.
func NewEmbedded(modelPath string, ctxSize, threads int) (Completer, error) {
	return nil, ErrEmbeddedUnavailable
}
