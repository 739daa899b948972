package bridge

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/archestra-ai/mcp-bridge/internal/jsonrpc"
)

// drainSink simulates the writer task (C2): it reads lines off sink and,
// for each one, parses the request id back out and delivers a canned
// response through deliver. Real requests go over a child's stdin/stdout
// pipe; here we short-circuit that round trip to exercise the correlator
// in isolation.
func drainSink(t *testing.T, sink chan string, corr *correlator, respond func(req jsonrpc.Request) jsonrpc.Response) {
	t.Helper()
	go func() {
		for line := range sink {
			var req jsonrpc.Request
			if err := json.Unmarshal([]byte(line), &req); err != nil {
				continue
			}
			corr.Deliver(respond(req))
		}
	}()
}

func TestSendAndWaitDeliversMatchingResponse(t *testing.T) {
	corr := newCorrelator(newResponseBuffer())
	sink := make(chan string, 10)
	defer close(sink)

	drainSink(t, sink, corr, func(req jsonrpc.Request) jsonrpc.Response {
		return jsonrpc.Response{JSONRPC: "2.0", ID: req.ID, Result: []byte(`{"ok":true}`)}
	})

	req, err := jsonrpc.NewRequest("ping", nil)
	require.NoError(t, err)

	resp, err := corr.SendAndWait(context.Background(), sink, req, "test-child", time.Second)
	require.NoError(t, err)
	require.Equal(t, req.ID, resp.ID)
}

func TestSendAndWaitTimesOut(t *testing.T) {
	corr := newCorrelator(newResponseBuffer())
	sink := make(chan string, 10)
	defer close(sink)

	req, err := jsonrpc.NewRequest("ping", nil)
	require.NoError(t, err)

	_, err = corr.SendAndWait(context.Background(), sink, req, "test-child", 10*time.Millisecond)
	require.Error(t, err)
	require.IsType(t, &TimeoutError{}, err)
}

func TestUnclaimedResponseFallsThroughToBuffer(t *testing.T) {
	buffer := newResponseBuffer()
	corr := newCorrelator(buffer)

	corr.Deliver(jsonrpc.Response{JSONRPC: "2.0", ID: "orphan"})

	_, ok := buffer.Take("orphan")
	require.True(t, ok, "expected an unclaimed response to land in the buffer")
}

func TestFailAllClosesPendingWaiters(t *testing.T) {
	corr := newCorrelator(newResponseBuffer())
	sink := make(chan string, 10)
	defer close(sink)

	req, err := jsonrpc.NewRequest("ping", nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := corr.SendAndWait(context.Background(), sink, req, "test-child", time.Second)
		done <- err
	}()

	// Give SendAndWait time to register before failing everything.
	time.Sleep(20 * time.Millisecond)
	corr.failAll()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrChildDied)
	case <-time.After(time.Second):
		t.Fatal("SendAndWait did not return after failAll")
	}
}

func TestSendWithRetrySucceedsOnSecondAttempt(t *testing.T) {
	corr := newCorrelator(newResponseBuffer())
	sink := make(chan string, 10)
	defer close(sink)

	var attempt int
	drainSink(t, sink, corr, func(req jsonrpc.Request) jsonrpc.Response {
		attempt++
		if attempt < 2 {
			return jsonrpc.Response{} // wrong id: simulates a dropped/unmatched reply
		}
		return jsonrpc.Response{JSONRPC: "2.0", ID: req.ID}
	})

	build := func() (jsonrpc.Request, error) { return jsonrpc.NewRequest("ping", nil) }
	_, err := corr.SendWithRetry(context.Background(), sink, build, "test-child", 50*time.Millisecond, 3)
	require.NoError(t, err)
	require.GreaterOrEqual(t, attempt, 2)
}
