package bridge

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for registry/transport preconditions (spec §7). Compared
// with errors.Is; these carry no per-call data.
var (
	ErrAlreadyRunning   = errors.New("mcp bridge: child already running")
	ErrNotRunning       = errors.New("mcp bridge: child not running")
	ErrNotFound         = errors.New("mcp bridge: child not found")
	ErrBadNpxInvocation = errors.New("mcp bridge: npx invocation requires a package argument")
	ErrNoChannel        = errors.New("mcp bridge: no stdin channel for child")
	ErrChildDied        = errors.New("mcp bridge: child process died")
)

// NodeUnavailableError is returned when command == "npx" but no usable
// Node.js installation can be found on the host.
type NodeUnavailableError struct {
	Instructions string
}

func (e *NodeUnavailableError) Error() string {
	return fmt.Sprintf("node.js is required to run this server: %s", e.Instructions)
}

// SpawnFailedError wraps an OS-level failure to start the child process.
type SpawnFailedError struct {
	Name string
	Err  error
}

func (e *SpawnFailedError) Error() string {
	return fmt.Sprintf("failed to spawn mcp server %q: %v", e.Name, e.Err)
}

func (e *SpawnFailedError) Unwrap() error { return e.Err }

// StdioMissingError is returned when the launcher cannot obtain one of the
// child's three stdio streams.
type StdioMissingError struct {
	Name   string
	Stream string // "stdin", "stdout", or "stderr"
}

func (e *StdioMissingError) Error() string {
	return fmt.Sprintf("mcp server %q: failed to obtain %s", e.Name, e.Stream)
}

// TimeoutError is returned when a request to a child is not answered within
// its deadline (§4.4: 30s default, 15s for tools/list).
type TimeoutError struct {
	Method   string
	Name     string
	Duration time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request %q to server %q timed out after %s", e.Method, e.Name, e.Duration)
}

// InitializeError is returned when a child rejects the initialize handshake
// with a JSON-RPC error. It is fatal for that child's startup.
type InitializeError struct {
	Message string
	Code    int
}

func (e *InitializeError) Error() string {
	return fmt.Sprintf("initialize error from server: %s (code: %d)", e.Message, e.Code)
}

// ToolError is returned when a child answers tools/call with a JSON-RPC
// error. It is surfaced to the caller, never retried.
type ToolError struct {
	Message string
	Code    int
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool execution error: %s (code: %d)", e.Message, e.Code)
}

// UnknownToolError is returned when a caller asks for a tool name the child
// did not advertise and the child's tool list is non-empty.
type UnknownToolError struct {
	ToolName string
	Found    int
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tool %q not found (found %d other tools)", e.ToolName, e.Found)
}

// JSONError wraps a (de)serialization failure encountered while parsing a
// child's wire traffic.
type JSONError struct {
	Reason string
	Err    error
}

func (e *JSONError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *JSONError) Unwrap() error { return e.Err }
