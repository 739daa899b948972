package bridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newRunningTestChild(name string) *Child {
	ctx, cancel := context.WithCancel(context.Background())
	return &Child{
		Name:      name,
		Command:   "true",
		isRunning: true,
		buffer:    newResponseBuffer(),
		corr:      newCorrelator(newResponseBuffer()),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func TestRegistryGetUnknownReturnsErrNotFound(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryStopUnknownReturnsErrNotFound(t *testing.T) {
	r := NewRegistry()
	require.ErrorIs(t, r.Stop("nope"), ErrNotFound)
}

func TestRegistryStartFailsWhenAlreadyRunning(t *testing.T) {
	r := NewRegistry()
	child := newRunningTestChild("my-server")
	r.mu.Lock()
	r.children["my-server"] = child
	r.mu.Unlock()

	err := r.Start(context.Background(), "my-server", "npx", []string{"-y", "some-package"})
	require.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestRegistryStartFailsForUnspawnableCommand(t *testing.T) {
	r := NewRegistry()
	err := r.Start(context.Background(), "broken", "/no/such/binary-anywhere", nil)
	require.Error(t, err)
	require.IsType(t, &SpawnFailedError{}, err)

	_, getErr := r.Get("broken")
	require.ErrorIs(t, getErr, ErrNotFound, "a failed launch must leave no child registered")
}

func TestRegistryListNamesIsSorted(t *testing.T) {
	r := NewRegistry()
	r.mu.Lock()
	r.children["zeta"] = newRunningTestChild("zeta")
	r.children["alpha"] = newRunningTestChild("alpha")
	r.children["mid"] = newRunningTestChild("mid")
	r.mu.Unlock()

	require.Equal(t, []string{"alpha", "mid", "zeta"}, r.ListNames())
}

func TestRegistryServerStatusReflectsRunningState(t *testing.T) {
	r := NewRegistry()
	running := newRunningTestChild("running")
	stopped := newRunningTestChild("stopped")
	stopped.isRunning = false

	r.mu.Lock()
	r.children["running"] = running
	r.children["stopped"] = stopped
	r.mu.Unlock()

	status := r.ServerStatus()
	require.True(t, status["running"])
	require.False(t, status["stopped"])
}

func TestRegistryExecuteToolOnUnknownServer(t *testing.T) {
	r := NewRegistry()
	_, err := r.ExecuteTool(context.Background(), "nope", "sometool", nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryDebugDumpIncludesEveryChild(t *testing.T) {
	r := NewRegistry()
	r.mu.Lock()
	r.children["alpha"] = newRunningTestChild("alpha")
	r.children["beta"] = newRunningTestChild("beta")
	r.mu.Unlock()

	require.Len(t, r.DebugDump(), 2)
}
