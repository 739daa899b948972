// Package jsonrpc implements the wire format for the tool protocol: newline
// delimited JSON-RPC 2.0 messages exchanged with a child process over stdio.
package jsonrpc

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ProtocolVersion is the tool protocol version this bridge speaks.
const ProtocolVersion = "2024-11-05"

// ClientName and ClientVersion identify this bridge to children during the
// initialize handshake.
const (
	ClientName    = "archestra-mcp-bridge"
	ClientVersion = "0.1.0"
)

// Request is an outbound JSON-RPC request. Params is omitted when nil.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Notification is an outbound JSON-RPC notification. It must never carry an
// id field, per the tool protocol.
type Notification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is an inbound JSON-RPC response (or error) correlated by ID.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the error object carried by a JSON-RPC error response.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// NewID returns a fresh request id. Spec invariant 5: a JSON-RPC response id
// is unique within the lifetime of the bridge, generated as a v4 UUID per
// outbound request.
func NewID() string {
	return uuid.NewString()
}

// NewRequest builds a canonical JSON-RPC 2.0 request with a fresh id.
func NewRequest(method string, params any) (Request, error) {
	req := Request{JSONRPC: "2.0", ID: NewID(), Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return Request{}, fmt.Errorf("marshal params for %s: %w", method, err)
		}
		req.Params = raw
	}
	return req, nil
}

// Line serializes a request to a single newline-terminated line, the wire
// framing the writer task (C2) writes verbatim to the child's stdin.
func (r Request) Line() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal request %s: %w", r.Method, err)
	}
	return string(data) + "\n", nil
}

// Line serializes a notification to a single newline-terminated line.
// Notifications bypass the correlator entirely (§4.4): no response is
// expected and no id is present.
func (n Notification) Line() (string, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("marshal notification %s: %w", n.Method, err)
	}
	return string(data) + "\n", nil
}

// ParseResponse attempts to parse a raw stdout line as a JSON-RPC response.
// Lines that are not valid JSON-RPC responses (e.g. a child's own log chatter
// leaking onto stdout) are reported as an error so callers can skip them.
func ParseResponse(line string) (Response, error) {
	var resp Response
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return Response{}, fmt.Errorf("parse json-rpc response: %w", err)
	}
	if resp.ID == "" {
		return Response{}, fmt.Errorf("response missing id")
	}
	return resp, nil
}

// Tool describes an MCP tool advertised by a child and invocable via
// tools/call.
type Tool struct {
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Resource describes an MCP resource advertised by a child via
// resources/list.
type Resource struct {
	URI         string  `json:"uri"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	MimeType    *string `json:"mimeType,omitempty"`
}

// ToolsListResult is the result payload of a tools/list response.
type ToolsListResult struct {
	Tools []json.RawMessage `json:"tools"`
}

// ResourcesListResult is the result payload of a resources/list response.
type ResourcesListResult struct {
	Resources []Resource `json:"resources"`
}

// ToolCallParams is the params payload of a tools/call request.
type ToolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// InitializeParams is the params payload of the initialize request.
type InitializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ClientInfo      ClientInfo     `json:"clientInfo"`
}

// ClientInfo identifies this bridge to a child during handshake.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// DefaultInitializeParams builds the initialize params this bridge sends to
// every child (§4.5): protocol version 2024-11-05, tools capability
// advertised, fixed clientInfo.
func DefaultInitializeParams() InitializeParams {
	return InitializeParams{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    map[string]any{"tools": map[string]any{}},
		ClientInfo:      ClientInfo{Name: ClientName, Version: ClientVersion},
	}
}
