package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/archestra-ai/mcp-bridge/internal/jsonrpc"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// discoveryAttempts/discoveryBackoffUnit implement discover_tools' "1000 *
// attempt" backoff (1s, 2s between the 3 attempts).
const (
	discoveryAttempts      = 3
	discoveryBackoffUnit   = 1 * time.Second
	resourceDiscoveryTries = 2
	postInitDwell          = 1 * time.Second
)

// errEmptyToolsList signals the original's "tools: []" short-circuit: an
// explicitly empty array triggers the fallback table immediately, without
// exhausting the retry budget (SPEC_FULL.md SUPPLEMENTED FEATURES item 3).
var errEmptyToolsList = fmt.Errorf("mcp bridge: server returned an empty tools list")

// initializeChild performs the handshake (C5 step: SPAWNED -> INITIALIZED):
// initialize request (3 retries, 30s deadline each), the
// notifications/initialized notification, then the fixed 1s dwell before
// discovery begins (DESIGN.md: "Notification dwell" resolution).
func initializeChild(ctx context.Context, child *Child) error {
	build := func() (jsonrpc.Request, error) {
		return jsonrpc.NewRequest("initialize", jsonrpc.DefaultInitializeParams())
	}
	sink, ok := child.sink()
	if !ok {
		return ErrNoChannel
	}
	resp, err := child.corr.SendWithRetry(ctx, sink, build, child.Name, defaultRequestTimeout, 3)
	if err != nil {
		return fmt.Errorf("failed to initialize mcp server %q: %w", child.Name, err)
	}
	if resp.Error != nil {
		return &InitializeError{Message: resp.Error.Message, Code: resp.Error.Code}
	}

	if err := child.corr.Notify(ctx, sink, "notifications/initialized", nil); err != nil {
		return fmt.Errorf("failed to notify initialized for %q: %w", child.Name, err)
	}

	select {
	case <-time.After(postInitDwell):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// discoverCapabilities drives C5's READY_FOR_DISCOVERY -> DISCOVERED /
// FALLBACK / ENRICHED transition: tools/list (with the empty-array
// fallback distinction), falling back to the static hint table when
// discovery fails or returns nothing, then a best-effort resources/list.
func discoverCapabilities(ctx context.Context, child *Child) {
	if err := discoverTools(ctx, child); err != nil {
		registerKnownToolsIfAvailable(child)
	} else if len(child.Tools()) == 0 {
		registerKnownToolsIfAvailable(child)
	}
	discoverResources(ctx, child)
}

func discoverTools(ctx context.Context, child *Child) error {
	sink, ok := child.sink()
	if !ok {
		return ErrNoChannel
	}

	var lastErr error
	for attempt := 1; attempt <= discoveryAttempts; attempt++ {
		req, err := jsonrpc.NewRequest("tools/list", nil)
		if err != nil {
			return err
		}
		resp, err := child.corr.SendAndWait(ctx, sink, req, child.Name, toolsListTimeout)
		if err != nil {
			lastErr = err
		} else if resp.Error != nil {
			// Server errors are not retried, matching the original.
			return &ToolError{Message: resp.Error.Message, Code: resp.Error.Code}
		} else {
			tools, empty, parseErr := parseToolsList(resp.Result)
			if parseErr == nil && !empty && len(tools) > 0 {
				child.setTools(tools)
				return nil
			}
			if empty {
				return errEmptyToolsList
			}
			if parseErr == nil {
				parseErr = fmt.Errorf("mcp bridge: tools/list result for %q has no usable tools", child.Name)
			}
			lastErr = parseErr
		}

		if attempt < discoveryAttempts {
			delay := time.Duration(attempt) * discoveryBackoffUnit
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("mcp bridge: tools discovery failed for %q", child.Name)
	}
	return lastErr
}

// parseToolsList decodes a tools/list result, degrading per-tool to a
// minimal {name, description, inputSchema} record when a tool's JSON
// doesn't fully match jsonrpc.Tool (graceful degradation, spec §7). An
// explicit empty "tools" array reports empty=true; a result with no "tools"
// key reports empty=false and no tools, which discoverTools retries.
func parseToolsList(result json.RawMessage) (tools []jsonrpc.Tool, empty bool, err error) {
	if len(result) == 0 {
		return nil, false, fmt.Errorf("mcp bridge: empty tools/list result")
	}
	var listing jsonrpc.ToolsListResult
	if err := json.Unmarshal(result, &listing); err != nil {
		return nil, false, &JSONError{Reason: "parse tools/list result", Err: err}
	}
	if listing.Tools == nil {
		return nil, false, nil
	}
	if len(listing.Tools) == 0 {
		return nil, true, nil
	}
	out := make([]jsonrpc.Tool, 0, len(listing.Tools))
	for _, raw := range listing.Tools {
		var tool jsonrpc.Tool
		if err := json.Unmarshal(raw, &tool); err == nil && tool.Name != "" {
			out = append(out, withValidatedSchema(tool))
			continue
		}
		if minimal, ok := degradeToMinimalTool(raw); ok {
			out = append(out, minimal)
		}
	}
	return out, false, nil
}

func degradeToMinimalTool(raw json.RawMessage) (jsonrpc.Tool, bool) {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		return jsonrpc.Tool{}, false
	}
	nameRaw, ok := generic["name"]
	if !ok {
		return jsonrpc.Tool{}, false
	}
	var name string
	if err := json.Unmarshal(nameRaw, &name); err != nil || name == "" {
		return jsonrpc.Tool{}, false
	}
	tool := jsonrpc.Tool{Name: name, InputSchema: json.RawMessage(`{}`)}
	if descRaw, ok := generic["description"]; ok {
		var desc string
		if err := json.Unmarshal(descRaw, &desc); err == nil {
			tool.Description = &desc
		}
	}
	if schemaRaw, ok := generic["inputSchema"]; ok {
		tool.InputSchema = schemaRaw
	}
	return tool, true
}

// withValidatedSchema best-effort compiles inputSchema with
// santhosh-tekuri/jsonschema; a tool whose schema fails to compile is still
// registered with its name, description and raw schema unchanged. The
// compile result is not recorded, and the debug dump does not flag such
// tools.
func withValidatedSchema(tool jsonrpc.Tool) jsonrpc.Tool {
	if len(tool.InputSchema) == 0 {
		tool.InputSchema = json.RawMessage(`{}`)
		return tool
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(tool.Name, mustDecodeSchema(tool.InputSchema)); err != nil {
		return tool
	}
	if _, err := compiler.Compile(tool.Name); err != nil {
		return tool
	}
	return tool
}

func mustDecodeSchema(raw json.RawMessage) any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return map[string]any{}
	}
	return v
}

func discoverResources(ctx context.Context, child *Child) {
	sink, ok := child.sink()
	if !ok {
		return
	}
	build := func() (jsonrpc.Request, error) {
		return jsonrpc.NewRequest("resources/list", nil)
	}
	resp, err := child.corr.SendWithRetry(ctx, sink, build, child.Name, defaultRequestTimeout, resourceDiscoveryTries)
	if err != nil || resp.Error != nil {
		// Resources are optional; failures are non-fatal (spec §4.3).
		return
	}
	var listing jsonrpc.ResourcesListResult
	if err := json.Unmarshal(resp.Result, &listing); err != nil {
		return
	}
	child.setResources(listing.Resources)
}

// registerKnownToolsIfAvailable installs the static fallback hint table
// (FALLBACK state) when live discovery fails or returns nothing, matching
// get_server_tool_hints' name-substring matching.
func registerKnownToolsIfAvailable(child *Child) {
	hints := toolHintsFor(child.Name)
	if len(hints) > 0 {
		child.setTools(hints)
	}
}

func strPtr(s string) *string { return &s }

func toolHintsFor(name string) []jsonrpc.Tool {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "context7") || strings.Contains(lower, "context-7"):
		return []jsonrpc.Tool{
			{
				Name:        "resolve-library-id",
				Description: strPtr("Find library by name and get Context7-compatible ID"),
				InputSchema: json.RawMessage(`{"type":"object","properties":{"libraryName":{"type":"string","description":"Library/package name to search for"}},"required":["libraryName"]}`),
			},
			{
				Name:        "get-library-docs",
				Description: strPtr("Get documentation for a library using its Context7 ID"),
				InputSchema: json.RawMessage(`{"type":"object","properties":{"context7CompatibleLibraryID":{"type":"string","description":"Library ID from resolve-library-id"},"topic":{"type":"string","description":"Optional topic to focus on"},"tokens":{"type":"number","description":"Max tokens (default: 10000)"}},"required":["context7CompatibleLibraryID"]}`),
			},
		}
	case strings.Contains(lower, "filesystem") || strings.Contains(lower, "fs"):
		return []jsonrpc.Tool{
			{
				Name:        "read_file",
				Description: strPtr("Read contents of a file"),
				InputSchema: json.RawMessage(`{"type":"object","properties":{"path":{"type":"string","description":"File path to read"}},"required":["path"]}`),
			},
			{
				Name:        "write_file",
				Description: strPtr("Write content to a file"),
				InputSchema: json.RawMessage(`{"type":"object","properties":{"path":{"type":"string","description":"File path to write"},"content":{"type":"string","description":"Content to write"}},"required":["path","content"]}`),
			},
		}
	case strings.Contains(lower, "git"):
		return []jsonrpc.Tool{
			{
				Name:        "git_status",
				Description: strPtr("Get git repository status"),
				InputSchema: json.RawMessage(`{"type":"object","properties":{}}`),
			},
			{
				Name:        "git_log",
				Description: strPtr("Get git commit history"),
				InputSchema: json.RawMessage(`{"type":"object","properties":{"limit":{"type":"number","description":"Number of commits to show"}}}`),
			},
		}
	default:
		return nil
	}
}
