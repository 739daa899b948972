package bridge

import (
	"context"
	"os/exec"
	"time"

	"github.com/archestra-ai/mcp-bridge/internal/bridge/nodeutil"
	"github.com/archestra-ai/mcp-bridge/internal/bridge/sandbox"
)

// LaunchOptions configures a single child spawn (C1).
type LaunchOptions struct {
	Name           string
	Command        string
	Args           []string
	SandboxProfile string
}

// launch spawns a child process and wires up its I/O tasks (C2), response
// buffer (C3) and correlator (C4). It preserves the caller-supplied
// command/args verbatim on the returned Child even when a different argv is
// actually executed (npx resolution, sandbox wrapping) — see DESIGN.md's
// "Preserved vs. resolved command/args" resolution.
func launch(opts LaunchOptions) (*Child, *correlator, error) {
	resolvedCommand, resolvedArgs, err := resolveCommand(opts.Command, opts.Args)
	if err != nil {
		return nil, nil, err
	}

	sandboxCommand, sandboxArgs := sandbox.Wrap(opts.SandboxProfile, resolvedCommand, resolvedArgs)

	cmd := exec.Command(sandboxCommand, sandboxArgs...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, &StdioMissingError{Name: opts.Name, Stream: "stdin"}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, &StdioMissingError{Name: opts.Name, Stream: "stdout"}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, &StdioMissingError{Name: opts.Name, Stream: "stderr"}
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, &SpawnFailedError{Name: opts.Name, Err: err}
	}

	sink := make(chan string, stdinChannelCapacity)
	buffer := newResponseBuffer()
	corr := newCorrelator(buffer)
	proc := newManagedProcess(cmd)

	childCtx, cancel := context.WithCancel(context.Background())
	startWriter(childCtx, opts.Name, stdin, sink)
	startReader(childCtx, opts.Name, stdout, corr)
	startStderrLogger(childCtx, opts.Name, stderr)

	child := &Child{
		Name:            opts.Name,
		Command:         opts.Command,
		Args:            opts.Args,
		stdinSink:       sink,
		process:         proc,
		isRunning:       true,
		lastHealthCheck: time.Now(),
		buffer:          buffer,
		corr:            corr,
		ctx:             childCtx,
		cancel:          cancel,
	}
	return child, corr, nil
}

// resolveCommand translates an "npx <pkg> ..." invocation into a concrete
// binary + args, surfacing ErrBadNpxInvocation / NodeUnavailableError before
// ever touching the OS; any other command passes through unchanged.
func resolveCommand(command string, args []string) (string, []string, error) {
	if command != "npx" {
		return command, args, nil
	}
	if len(args) == 0 {
		return "", nil, ErrBadNpxInvocation
	}
	if !nodeutil.Installed() {
		return "", nil, &NodeUnavailableError{Instructions: nodeutil.Instructions()}
	}
	resolved, resolvedArgs, err := nodeutil.ResolveNpx(args)
	if err != nil {
		return "", nil, &NodeUnavailableError{Instructions: nodeutil.Instructions()}
	}
	return resolved, resolvedArgs, nil
}
