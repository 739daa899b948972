package bridge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewBridgeStartsEmpty(t *testing.T) {
	b := New("")
	require.Empty(t, b.GetMCPServerStatus())
	require.Empty(t, b.GetMCPTools())
	require.Empty(t, b.DebugMCPBridge())
}

func TestStopPersistentMCPServerUnknownName(t *testing.T) {
	b := New("")
	require.ErrorIs(t, b.StopPersistentMCPServer("nope"), ErrNotFound)
}

func TestGetMCPToolsAggregatesAcrossServers(t *testing.T) {
	b := New("")
	r := b.Registry()
	r.mu.Lock()
	r.children["alpha"] = newRunningTestChild("alpha")
	r.children["beta"] = newRunningTestChild("beta")
	r.mu.Unlock()

	r.children["alpha"].setTools(toolHintsFor("context7"))
	r.children["beta"].setTools(toolHintsFor("filesystem"))

	require.Len(t, b.GetMCPTools(), 4)
}
