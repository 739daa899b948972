package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/archestra-ai/mcp-bridge/internal/jsonrpc"
)

// Default and per-method deadlines (spec §4.4).
const (
	defaultRequestTimeout = 30 * time.Second
	toolsListTimeout      = 15 * time.Second
)

// correlator implements C4: it matches inbound responses to outbound
// requests by id. Unlike the original Rust's 100ms buffer-polling loop, a
// waiter registers a one-shot completion channel before the request is
// written, adopting the pattern in `features/mcp/runtime/stdiocaller.go`'s
// `pending map[uint64]chan callResult`. A response that arrives with no
// registered waiter (already timed out, or never awaited) falls through to
// the response buffer (C3), where the debug dump can still see it until it
// is evicted; SendAndWait itself never reads the buffer.
type correlator struct {
	mu      sync.Mutex
	pending map[string]chan jsonrpc.Response
	buffer  *responseBuffer
}

func newCorrelator(buffer *responseBuffer) *correlator {
	return &correlator{pending: make(map[string]chan jsonrpc.Response), buffer: buffer}
}

// Deliver routes a response parsed off the child's stdout to its waiter, or
// to the buffer if none is registered.
func (c *correlator) Deliver(resp jsonrpc.Response) {
	c.mu.Lock()
	ch, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.mu.Unlock()

	if ok {
		ch <- resp
		return
	}
	c.buffer.Push(resp)
}

func (c *correlator) register(id string) chan jsonrpc.Response {
	ch := make(chan jsonrpc.Response, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	return ch
}

func (c *correlator) unregister(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// failAll closes every pending waiter's channel, which SendAndWait reports
// as ErrChildDied. It is called by Registry.Stop and by the health monitor
// when it finds the process exited (spec §4.2/§5: a dead child must not
// leave callers blocked forever).
func (c *correlator) failAll() {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[string]chan jsonrpc.Response)
	c.mu.Unlock()

	for _, ch := range pending {
		close(ch)
	}
}

// sendLine writes a pre-serialized line to the child's stdin sink, the
// bounded channel the writer task (C2) drains. It blocks if the channel is
// full (backpressure, spec §5) and respects ctx cancellation.
func sendLine(ctx context.Context, sink chan string, line string) error {
	select {
	case sink <- line:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Notify sends a fire-and-forget JSON-RPC notification (no id, no response
// expected), bypassing the correlator entirely per spec §4.4.
func (c *correlator) Notify(ctx context.Context, sink chan string, method string, params any) error {
	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return &JSONError{Reason: "marshal notification params", Err: err}
		}
		raw = data
	}
	line, err := (jsonrpc.Notification{JSONRPC: "2.0", Method: method, Params: raw}).Line()
	if err != nil {
		return &JSONError{Reason: "encode notification", Err: err}
	}
	return sendLine(ctx, sink, line)
}

// SendAndWait writes req and blocks until its response is delivered,
// timeout elapses, or ctx is cancelled. This is send_request_and_wait /
// send_tools_list_request from the original, collapsed into one function
// parameterized by timeout.
func (c *correlator) SendAndWait(ctx context.Context, sink chan string, req jsonrpc.Request, name string, timeout time.Duration) (jsonrpc.Response, error) {
	line, err := req.Line()
	if err != nil {
		return jsonrpc.Response{}, &JSONError{Reason: "encode request", Err: err}
	}

	ch := c.register(req.ID)
	defer c.unregister(req.ID)

	deadline, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := sendLine(deadline, sink, line); err != nil {
		return jsonrpc.Response{}, classifyWaitErr(err, req.Method, name, timeout)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return jsonrpc.Response{}, ErrChildDied
		}
		return resp, nil
	case <-deadline.Done():
		return jsonrpc.Response{}, classifyWaitErr(deadline.Err(), req.Method, name, timeout)
	}
}

func classifyWaitErr(err error, method, name string, timeout time.Duration) error {
	if err == context.DeadlineExceeded {
		return &TimeoutError{Method: method, Name: name, Duration: timeout}
	}
	return err
}

// SendWithRetry retries SendAndWait up to attempts times with exponential
// backoff (100ms * 2^attempt, matching send_request_with_retry in the
// original), returning the first success or the last error.
func (c *correlator) SendWithRetry(ctx context.Context, sink chan string, build func() (jsonrpc.Request, error), name string, timeout time.Duration, attempts int) (jsonrpc.Response, error) {
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<uint(attempt))) * time.Millisecond
			timer := time.NewTimer(backoff)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return jsonrpc.Response{}, ctx.Err()
			}
		}
		req, err := build()
		if err != nil {
			return jsonrpc.Response{}, err
		}
		resp, err := c.SendAndWait(ctx, sink, req, name, timeout)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return jsonrpc.Response{}, lastErr
}
