// Package sandbox wraps a child's argv with the host sandboxing mechanism
// the original used (`sandbox-exec -f <profile>` on macOS). Per spec §4.1,
// this is best-effort: platforms without a sandboxing facility run the
// child unwrapped.
package sandbox

import "runtime"

// Wrap prepends the platform sandbox invocation to command/args when one is
// available. profile is the path to the sandbox profile file; an empty
// profile disables wrapping even on a supported platform.
func Wrap(profile, command string, args []string) (string, []string) {
	if profile == "" || runtime.GOOS != "darwin" {
		return command, args
	}
	wrapped := append([]string{"-f", profile, command}, args...)
	return "sandbox-exec", wrapped
}
