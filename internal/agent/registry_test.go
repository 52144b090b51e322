package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatkit-ai/chatkit/pkg/types"
)

type nopInvoker struct{}

func (nopInvoker) Invoke(ctx context.Context, req InvokeRequest, onProgress ProgressFunc) (*Result, error) {
	return &Result{}, nil
}

func (nopInvoker) Followups(ctx context.Context, sessionID string) ([]types.Followup, error) {
	return nil, nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register("default", nopInvoker{})

	invoker, err := r.Get("default")
	require.NoError(t, err)
	assert.NotNil(t, invoker)

	assert.True(t, r.Exists("default"))
	assert.Equal(t, 1, r.Count())
	assert.Equal(t, []string{"default"}, r.Names())
}

func TestRegistry_UnknownAgent(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent not found")
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry()
	r.Register("default", nopInvoker{})
	r.Unregister("default")

	assert.False(t, r.Exists("default"))
	assert.Zero(t, r.Count())
}
