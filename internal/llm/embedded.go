//go:build llama

package llm

// cgo link directives for the in-process runtime. An rpath of $ORIGIN lets
// the loader find libllama.so next to the built binary; -L../../bin covers
// link time for the 'llama' build variant.
/*
#cgo LDFLAGS: -Wl,-rpath,'$ORIGIN' -L${SRCDIR}/../../bin -lllama
*/
import "C"

import (
	"context"
	"errors"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"

	"inferd/pkg/types"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// embedded runs the model in-process through go-llama.cpp instead of
// spawning a server binary.
type embedded struct {
	model   *llama.LLama
	threads int
}

// NewEmbedded loads the model file into the current process.
func NewEmbedded(modelPath string, ctxSize, threads int) (Completer, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, errors.New("model path is empty")
	}
	m, err := llama.New(modelPath, llama.SetContext(ctxSize))
	if err != nil {
		return nil, err
	}
	return &embedded{model: m, threads: threads}, nil
}

func (e *embedded) Complete(ctx context.Context, messages []types.ChatMessage, opts Options) (string, error) {
	if e.model == nil {
		return "", errors.New("embedded model not initialized")
	}
	e.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	})
	po := []llama.PredictOption{
		llama.SetTokens(maxInt(1, opts.MaxTokens)),
		llama.SetThreads(maxInt(1, e.threads)),
	}
	if opts.Temperature > 0 {
		po = append(po, llama.SetTemperature(float32(opts.Temperature)))
	}
	text, err := e.model.Predict(FlattenMessages(messages), po...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	return text, nil
}

func (e *embedded) Close() error {
	if e.model != nil {
		e.model.Free()
		e.model = nil
	}
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
