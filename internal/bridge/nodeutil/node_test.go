package nodeutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveNpxRejectsEmptyArgs(t *testing.T) {
	_, _, err := ResolveNpx(nil)
	require.Error(t, err)
}

func TestInstructionsIsNonEmpty(t *testing.T) {
	require.NotEmpty(t, Instructions())
}
