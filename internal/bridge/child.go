package bridge

import (
	"context"
	"os/exec"
	"sync"
	"time"

	"github.com/archestra-ai/mcp-bridge/internal/jsonrpc"
)

// stdinChannelCapacity is the bounded writer channel capacity (§5
// backpressure): a caller flooding a slow child blocks on send rather than
// growing memory unboundedly.
const stdinChannelCapacity = 100

// managedProcess wraps the OS child handle. A dedicated goroutine reaps it
// with a single blocking Wait() call and closes done, so the health monitor
// (non-blocking try_wait equivalent) and Stop (bounded wait with timeout)
// can both observe exit without racing on exec.Cmd, which only tolerates
// one Wait() call.
type managedProcess struct {
	cmd *exec.Cmd

	mu      sync.Mutex
	done    chan struct{}
	waitErr error
}

func newManagedProcess(cmd *exec.Cmd) *managedProcess {
	p := &managedProcess{cmd: cmd, done: make(chan struct{})}
	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		p.waitErr = err
		p.mu.Unlock()
		close(p.done)
	}()
	return p
}

func (p *managedProcess) kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

// exited reports, without blocking, whether the process has already been
// reaped (spec invariant: exit of I/O tasks alone does not mark a child
// stopped; only the health monitor or an explicit Stop does).
func (p *managedProcess) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// waitTimeout blocks up to timeout for the process to exit, matching
// stop_server's 5s tokio::time::timeout around the wait.
func (p *managedProcess) waitTimeout(timeout time.Duration) (exited bool, err error) {
	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return true, p.waitErr
	case <-time.After(timeout):
		return false, nil
	}
}

// Child is one supervised tool-protocol server process (spec §3).
type Child struct {
	Name string
	// Command/Args are the caller-supplied command line, preserved verbatim
	// for debugging even when the launcher resolves a different argv to
	// actually spawn (npx indirection). See DESIGN.md open question (b).
	Command string
	Args    []string

	mu              sync.Mutex
	stdinSink       chan string // nil after shutdown; spec invariant 1
	process         *managedProcess
	isRunning       bool
	lastHealthCheck time.Time
	tools           []jsonrpc.Tool
	resources       []jsonrpc.Resource

	buffer *responseBuffer
	corr   *correlator

	ctx    context.Context    // cancelled together with the tasks below
	cancel context.CancelFunc // stops the writer and health tasks; reader/logger exit when the pipes close
}

// lifetimeCtx returns the context cancelled when the child is stopped or
// torn down, used to bound the health monitor's goroutine.
func (c *Child) lifetimeCtx() context.Context {
	return c.ctx
}

// Running reports whether the child is currently marked running.
func (c *Child) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isRunning
}

// Tools returns a copy of the child's currently discovered tools.
func (c *Child) Tools() []jsonrpc.Tool {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]jsonrpc.Tool, len(c.tools))
	copy(out, c.tools)
	return out
}

// Resources returns a copy of the child's currently discovered resources.
func (c *Child) Resources() []jsonrpc.Resource {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]jsonrpc.Resource, len(c.resources))
	copy(out, c.resources)
	return out
}

func (c *Child) setTools(tools []jsonrpc.Tool) {
	c.mu.Lock()
	c.tools = tools
	c.mu.Unlock()
}

func (c *Child) setResources(resources []jsonrpc.Resource) {
	c.mu.Lock()
	c.resources = resources
	c.mu.Unlock()
}

// appendToolIfUnknown registers tool as dynamically discovered if it is not
// already present (C6 step 5); returns true if it was newly added.
func (c *Child) appendToolIfUnknown(tool jsonrpc.Tool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tools {
		if t.Name == tool.Name {
			return false
		}
	}
	c.tools = append(c.tools, tool)
	return true
}

// hasTool reports whether name matches a currently known tool, and how many
// tools are known in total (used for C6's soft-validation rule).
func (c *Child) hasTool(name string) (found bool, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	total = len(c.tools)
	for _, t := range c.tools {
		if t.Name == name {
			return true, total
		}
	}
	return false, total
}

// hasProcessHandle reports whether the child still holds a process handle
// (spec invariant 1: Some iff is_running and process_handle are both set),
// read under c.mu rather than touching c.process directly.
func (c *Child) hasProcessHandle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.process != nil
}

// processExited reports, without blocking, whether the child's process has
// already been reaped, or false if there is no process handle at all. Used
// by the health monitor instead of reading c.process directly.
func (c *Child) processExited() bool {
	c.mu.Lock()
	proc := c.process
	c.mu.Unlock()
	if proc == nil {
		return false
	}
	return proc.exited()
}

func (c *Child) sink() (chan string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isRunning || c.stdinSink == nil {
		return nil, false
	}
	return c.stdinSink, true
}

func (c *Child) touchHealthCheck() {
	c.mu.Lock()
	c.lastHealthCheck = time.Now()
	c.mu.Unlock()
}

// markStopped flips is_running to false and clears the process handle and
// stdin sink (spec invariant 1), returning the handles so the caller can
// finish tearing them down outside the lock.
func (c *Child) markStopped() (*managedProcess, chan string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	proc := c.process
	sink := c.stdinSink
	c.isRunning = false
	c.process = nil
	c.stdinSink = nil
	return proc, sink
}
