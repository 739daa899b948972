package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// stopWait matches stop_server's 5s bound on waiting for the process to
// exit after being killed.
const stopWait = 5 * time.Second

// Registry is C7: the supervised set of children, keyed by name. Start
// dedupes concurrent calls racing on the same name via singleflight, making
// the "fails with AlreadyRunning" postcondition (spec invariant 6) atomic
// rather than merely checked-then-acted-on (DOMAIN STACK rationale).
type Registry struct {
	mu       sync.Mutex
	children map[string]*Child
	starting singleflight.Group
	inv      *invoker

	SandboxProfile string
}

// NewRegistry returns an empty registry ready to supervise children.
func NewRegistry() *Registry {
	return &Registry{
		children: make(map[string]*Child),
		inv:      newInvoker(),
	}
}

// Start launches a new child under name, running its handshake and
// capability discovery before returning. It fails with ErrAlreadyRunning if
// a child by that name is already running (spec invariant 6).
func (r *Registry) Start(ctx context.Context, name, command string, args []string) error {
	_, err, _ := r.starting.Do(name, func() (any, error) {
		r.mu.Lock()
		if existing, ok := r.children[name]; ok && existing.Running() {
			r.mu.Unlock()
			return nil, ErrAlreadyRunning
		}
		r.mu.Unlock()

		child, _, err := launch(LaunchOptions{
			Name:           name,
			Command:        command,
			Args:           args,
			SandboxProfile: r.SandboxProfile,
		})
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.children[name] = child
		r.mu.Unlock()

		if err := initializeChild(ctx, child); err != nil {
			r.teardown(child)
			return nil, err
		}
		discoverCapabilities(ctx, child)
		startHealthMonitor(child.lifetimeCtx(), child)
		return nil, nil
	})
	return err
}

// teardown stops I/O tasks and kills the process without removing the
// child from the registry (used on a failed initialize so Stop/debug still
// see the attempt).
func (r *Registry) teardown(child *Child) {
	child.cancel()
	proc, _ := child.markStopped()
	if proc != nil {
		_ = proc.kill()
		_, _ = proc.waitTimeout(stopWait)
	}
}

// Stop terminates the named child: flips is_running, closes its stdin
// channel, kills the process and waits up to 5s for it to exit (logged, not
// fatal, on timeout), matching stop_server.
func (r *Registry) Stop(name string) error {
	r.mu.Lock()
	child, ok := r.children[name]
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	child.cancel()
	proc, _ := child.markStopped()
	r.inv.forget(name)
	if child.corr != nil {
		child.corr.failAll()
	}
	if proc == nil {
		return nil
	}
	if err := proc.kill(); err != nil {
		return fmt.Errorf("mcp bridge: failed to kill %q: %w", name, err)
	}
	if exited, _ := proc.waitTimeout(stopWait); !exited {
		log.Printf("warning: mcp bridge: timed out waiting for %q to exit", name)
	}
	return nil
}

// Get returns the named child, or ErrNotFound.
func (r *Registry) Get(name string) (*Child, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	child, ok := r.children[name]
	if !ok {
		return nil, ErrNotFound
	}
	return child, nil
}

// ExecuteTool invokes a tool on the named child via C6.
func (r *Registry) ExecuteTool(ctx context.Context, name, toolName string, arguments json.RawMessage) (json.RawMessage, error) {
	child, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return r.inv.ExecuteTool(ctx, child, toolName, arguments)
}

// ListNames returns every child name currently registered, running or not.
// This backs the external host configurator's "available servers" query
// (DESIGN.md open question resolution (a)).
func (r *Registry) ListNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.children))
	for name := range r.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllTools returns every (server, tool) pair across running children.
func (r *Registry) AllTools() map[string][]json.RawMessage {
	r.mu.Lock()
	children := make([]*Child, 0, len(r.children))
	for _, c := range r.children {
		children = append(children, c)
	}
	r.mu.Unlock()

	out := make(map[string][]json.RawMessage)
	for _, c := range children {
		if !c.Running() {
			continue
		}
		tools := c.Tools()
		encoded := make([]json.RawMessage, 0, len(tools))
		for _, t := range tools {
			data, err := json.Marshal(t)
			if err == nil {
				encoded = append(encoded, data)
			}
		}
		out[c.Name] = encoded
	}
	return out
}

// ServerStatus returns a name -> running map for every registered child.
func (r *Registry) ServerStatus() map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := make(map[string]bool, len(r.children))
	for name, c := range r.children {
		status[name] = c.Running()
	}
	return status
}

// DebugDump reproduces the original's multi-section human-readable debug
// report (SPEC_FULL.md SUPPLEMENTED FEATURES item 1): one block per
// registered child naming its command/args, running state, tool/resource
// counts, whether it still has a stdin sink and process handle, and its
// response buffer size plus latest entry.
func (r *Registry) DebugDump() []string {
	r.mu.Lock()
	children := make([]*Child, 0, len(r.children))
	for _, c := range r.children {
		children = append(children, c)
	}
	r.mu.Unlock()

	sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })

	out := make([]string, 0, len(children))
	for _, c := range children {
		var b strings.Builder
		fmt.Fprintf(&b, "Server %q: Command: %s %v", c.Name, c.Command, c.Args)
		fmt.Fprintf(&b, "\n  Running: %v", c.Running())
		fmt.Fprintf(&b, "\n  Tools Count: %d", len(c.Tools()))
		fmt.Fprintf(&b, "\n  Resources Count: %d", len(c.Resources()))
		_, hasSink := c.sink()
		fmt.Fprintf(&b, "\n  Has stdin: %v", hasSink)
		fmt.Fprintf(&b, "\n  Process handle: %v", c.hasProcessHandle())
		if c.buffer != nil {
			fmt.Fprintf(&b, "\n  Response buffer size: %d", c.buffer.Len())
			if resp, _, ok := c.buffer.Latest(); ok {
				data, _ := json.Marshal(resp)
				fmt.Fprintf(&b, "\n  Latest response: %s", string(data))
			}
		}
		out = append(out, b.String())
	}
	return out
}
