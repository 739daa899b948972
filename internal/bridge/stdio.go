package bridge

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/archestra-ai/mcp-bridge/internal/jsonrpc"
	"goa.design/clue/log"
)

// startWriter drains sink and writes each line verbatim to stdin, matching
// the original's dedicated stdin-writer task: a `write_all` + `flush` per
// message, exiting (and closing stdin) when the channel is closed or ctx is
// cancelled.
func startWriter(ctx context.Context, name string, stdin io.WriteCloser, sink chan string) {
	go func() {
		defer stdin.Close()
		for {
			select {
			case line, ok := <-sink:
				if !ok {
					return
				}
				if _, err := io.WriteString(stdin, line); err != nil {
					log.Print(ctx, log.KV{K: "child", V: name}, log.KV{K: "event", V: "stdin_write_error"}, log.KV{K: "error", V: err.Error()})
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// startReader scans stdout line by line. Each line that parses as a JSON-RPC
// response is delivered to the correlator; lines that don't parse (a
// child's own banner text leaking onto stdout) are logged and skipped
// rather than treated as fatal, matching the original's tolerant loop.
func startReader(ctx context.Context, name string, stdout io.Reader, corr *correlator) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			resp, err := jsonrpc.ParseResponse(line)
			if err != nil {
				log.Debugf(ctx, "child %s: non-response stdout line: %v", name, err)
				continue
			}
			corr.Deliver(resp)
		}
		if err := scanner.Err(); err != nil {
			log.Print(ctx, log.KV{K: "child", V: name}, log.KV{K: "event", V: "stdout_read_error"}, log.KV{K: "error", V: err.Error()})
		}
	}()
	return done
}

// startStderrLogger copies a child's stderr to the structured logger one
// line at a time, tagged with the child name, instead of the original's
// `[MCP Server '{name}' stderr]` println! prefix.
func startStderrLogger(ctx context.Context, name string, stderr io.Reader) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
		for scanner.Scan() {
			log.Debugf(ctx, "child %s stderr: %s", name, scanner.Text())
		}
	}()
	return done
}
