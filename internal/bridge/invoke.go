package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/archestra-ai/mcp-bridge/internal/jsonrpc"
	"golang.org/x/time/rate"
)

// toolCallRetries matches execute_tool's send_request_with_retry(..., 2).
const toolCallRetries = 2

// invokerRateLimit/invokerBurst bound how fast tools/call requests are
// admitted per child ahead of the bounded writer channel (DOMAIN STACK:
// golang.org/x/time/rate), a concrete backstop for the spec's informal
// load-shedding property that channel backpressure alone only states as an
// eventual consequence.
const (
	invokerRateLimit = 20 // requests/sec
	invokerBurst     = 40
)

// invoker owns the per-child rate limiters backing C6. One invoker is
// shared by the registry across all children.
type invoker struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newInvoker() *invoker {
	return &invoker{limiters: make(map[string]*rate.Limiter)}
}

func (iv *invoker) limiterFor(name string) *rate.Limiter {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	l, ok := iv.limiters[name]
	if !ok {
		l = rate.NewLimiter(rate.Limit(invokerRateLimit), invokerBurst)
		iv.limiters[name] = l
	}
	return l
}

func (iv *invoker) forget(name string) {
	iv.mu.Lock()
	delete(iv.limiters, name)
	iv.mu.Unlock()
}

// ExecuteTool implements C6's execute_tool: validates the child is running,
// soft-validates the tool name against discovered tools (skipping the check
// entirely when nothing was discovered, since some servers don't implement
// tools/list), then calls tools/call with 2 retries. A tool that succeeds
// despite not being pre-discovered is registered dynamically, matching the
// original.
func (iv *invoker) ExecuteTool(ctx context.Context, child *Child, toolName string, arguments json.RawMessage) (json.RawMessage, error) {
	if !child.Running() {
		return nil, ErrNotRunning
	}
	if found, total := child.hasTool(toolName); !found && total > 0 {
		return nil, &UnknownToolError{ToolName: toolName, Found: total}
	}

	if err := iv.limiterFor(child.Name).Wait(ctx); err != nil {
		return nil, err
	}

	sink, ok := child.sink()
	if !ok {
		return nil, ErrNoChannel
	}

	build := func() (jsonrpc.Request, error) {
		params := jsonrpc.ToolCallParams{Name: toolName, Arguments: arguments}
		return jsonrpc.NewRequest("tools/call", params)
	}
	resp, err := child.corr.SendWithRetry(ctx, sink, build, child.Name, defaultRequestTimeout, toolCallRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to execute tool %q: %w", toolName, err)
	}
	if resp.Error != nil {
		return nil, &ToolError{Message: resp.Error.Message, Code: resp.Error.Code}
	}
	if len(resp.Result) == 0 {
		return nil, fmt.Errorf("mcp bridge: tool execution returned an empty result")
	}

	if found, _ := child.hasTool(toolName); !found {
		child.appendToolIfUnknown(jsonrpc.Tool{
			Name:        toolName,
			Description: strPtr(fmt.Sprintf("Dynamically discovered tool from server %s", child.Name)),
			InputSchema: json.RawMessage(`{"type":"object","description":"Schema not available - tool was dynamically discovered"}`),
		})
	}

	return resp.Result, nil
}
