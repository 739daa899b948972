// Package nodeutil resolves how to actually invoke "npx"-style child
// commands, reconstructed from the call sites of the original's
// `node_utils::detect_node_installation` / `get_npm_execution_command`
// (the module itself was not part of the kept original_source slice).
package nodeutil

import (
	"fmt"
	"os/exec"
)

// installInstructions is the reconstructed NodeUnavailableError payload
// (SPEC_FULL.md SUPPLEMENTED FEATURES item 2): actionable, not a single
// opaque string.
const installInstructions = `Node.js was not found on this host. Install it via:
  - nvm: https://github.com/nvm-sh/nvm
  - your OS package manager (apt/brew/choco)
  - https://nodejs.org/en/download`

// Installed reports whether a usable Node.js/npx toolchain is present.
func Installed() bool {
	_, nodeErr := exec.LookPath("node")
	_, npxErr := exec.LookPath("npx")
	return nodeErr == nil && npxErr == nil
}

// Instructions returns the install-instructions payload for
// bridge.NodeUnavailableError.
func Instructions() string {
	return installInstructions
}

// ResolveNpx translates a caller-supplied `npx <pkg> [args...]` command into
// the concrete argv to execute. The original requires at least a package
// name; an empty args list is rejected before ever touching the OS.
func ResolveNpx(args []string) (command string, resolvedArgs []string, err error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("no package specified for npx invocation")
	}
	path, err := exec.LookPath("npx")
	if err != nil {
		return "", nil, fmt.Errorf("npx not found: %w", err)
	}
	return path, args, nil
}
