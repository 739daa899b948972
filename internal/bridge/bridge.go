// Package bridge implements the process bridge core (C1-C7): it launches
// child processes speaking the tool protocol over line-delimited
// JSON-RPC-on-stdio, multiplexes requests from in-process callers, and
// exposes the caller-facing command surface.
package bridge

import (
	"context"
	"encoding/json"
)

// Bridge is the caller-facing façade over a Registry, naming its methods
// after the commands spec.md §6 requires be preserved verbatim
// (start_persistent_mcp_server, stop_persistent_mcp_server, ...), rendered
// into idiomatic Go method names.
type Bridge struct {
	registry *Registry
}

// New returns a Bridge with an empty registry, supervising no children.
func New(sandboxProfile string) *Bridge {
	r := NewRegistry()
	r.SandboxProfile = sandboxProfile
	return &Bridge{registry: r}
}

// Registry exposes the underlying supervisor, e.g. for the host
// configurator's ListNames() query.
func (b *Bridge) Registry() *Registry { return b.registry }

// StartPersistentMCPServer launches and fully initializes a new child.
func (b *Bridge) StartPersistentMCPServer(ctx context.Context, name, command string, args []string) error {
	return b.registry.Start(ctx, name, command, args)
}

// StopPersistentMCPServer terminates a running child.
func (b *Bridge) StopPersistentMCPServer(name string) error {
	return b.registry.Stop(name)
}

// MCPToolEntry pairs a discovered tool with the name of the child that
// advertises it, matching get_mcp_tools' `[(name, Tool)]` return shape.
type MCPToolEntry struct {
	ServerName string          `json:"serverName"`
	Tool       json.RawMessage `json:"tool"`
}

// GetMCPTools lists every tool currently discovered across all running
// children.
func (b *Bridge) GetMCPTools() []MCPToolEntry {
	all := b.registry.AllTools()
	out := make([]MCPToolEntry, 0)
	for name, tools := range all {
		for _, t := range tools {
			out = append(out, MCPToolEntry{ServerName: name, Tool: t})
		}
	}
	return out
}

// GetMCPServerStatus returns a name -> is_running map for every registered
// child.
func (b *Bridge) GetMCPServerStatus() map[string]bool {
	return b.registry.ServerStatus()
}

// ExecuteMCPTool invokes a tool on a running child and returns its raw JSON
// result.
func (b *Bridge) ExecuteMCPTool(ctx context.Context, serverName, toolName string, arguments json.RawMessage) (json.RawMessage, error) {
	return b.registry.ExecuteTool(ctx, serverName, toolName, arguments)
}

// DebugMCPBridge renders the full human-readable debug report (SPEC_FULL.md
// SUPPLEMENTED FEATURES item 1).
func (b *Bridge) DebugMCPBridge() string {
	sections := b.registry.DebugDump()
	out := ""
	for i, s := range sections {
		if i > 0 {
			out += "\n\n"
		}
		out += s
	}
	return out
}
