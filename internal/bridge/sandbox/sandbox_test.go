package sandbox

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapIsNoOpWithoutProfile(t *testing.T) {
	cmd, args := Wrap("", "node", []string{"server.js"})
	require.Equal(t, "node", cmd)
	require.Equal(t, []string{"server.js"}, args)
}

func TestWrapAppliesProfileOnDarwin(t *testing.T) {
	if runtime.GOOS != "darwin" {
		t.Skip("sandbox-exec wrapping only applies on darwin")
	}
	cmd, args := Wrap("/tmp/profile.sb", "node", []string{"server.js"})
	require.Equal(t, "sandbox-exec", cmd)
	require.Equal(t, []string{"-f", "/tmp/profile.sb", "node", "server.js"}, args)
}

func TestWrapIsNoOpOnNonDarwin(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("this asserts the non-darwin no-op path")
	}
	cmd, args := Wrap("/tmp/profile.sb", "node", []string{"server.js"})
	require.Equal(t, "node", cmd)
	require.Equal(t, []string{"server.js"}, args)
}
