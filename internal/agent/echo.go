package agent

import (
	"context"
	"strings"
	"time"

	"github.com/chatkit-ai/chatkit/pkg/types"
)

// Echo is a built-in agent that streams the prompt back word by word.
// It exists so the server runs out of the box and so integrations can
// exercise the full streaming path without a model backend.
type Echo struct {
	// Delay between emitted words. Zero streams as fast as the engine
	// accepts.
	Delay time.Duration
}

func (e *Echo) Invoke(ctx context.Context, req InvokeRequest, onProgress ProgressFunc) (*Result, error) {
	words := strings.Fields(req.Message.Prompt)
	for i, word := range words {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if i > 0 {
			word = " " + word
		}
		onProgress(types.ContentProgress{Text: word})

		if e.Delay > 0 {
			select {
			case <-time.After(e.Delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return &Result{}, nil
}

func (e *Echo) Followups(ctx context.Context, sessionID string) ([]types.Followup, error) {
	return []types.Followup{{Kind: "reply", Message: "Say that again"}}, nil
}
