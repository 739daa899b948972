package jsonrpc

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRequestAssignsUniqueIDs(t *testing.T) {
	a, err := NewRequest("tools/list", nil)
	require.NoError(t, err)
	b, err := NewRequest("tools/list", nil)
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)
	require.Equal(t, "2.0", a.JSONRPC)
}

func TestRequestLineIsNewlineTerminated(t *testing.T) {
	req, err := NewRequest("ping", map[string]string{"a": "b"})
	require.NoError(t, err)
	line, err := req.Line()
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(line, "\n"))
	require.Equal(t, 1, strings.Count(line, "\n"))
}

func TestNotificationHasNoID(t *testing.T) {
	n := Notification{JSONRPC: "2.0", Method: "notifications/initialized"}
	line, err := n.Line()
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSuffix(line, "\n")), &decoded))
	_, hasID := decoded["id"]
	require.False(t, hasID, "notification must not carry an id field")
}

func TestParseResponseRejectsMissingID(t *testing.T) {
	_, err := ParseResponse(`{"jsonrpc":"2.0","result":{}}`)
	require.Error(t, err)
}

func TestParseResponseRoundTrip(t *testing.T) {
	resp, err := ParseResponse(`{"jsonrpc":"2.0","id":"abc","result":{"ok":true}}`)
	require.NoError(t, err)
	require.Equal(t, "abc", resp.ID)
	require.Nil(t, resp.Error)
}

func TestParseResponseSurfacesRPCError(t *testing.T) {
	resp, err := ParseResponse(`{"jsonrpc":"2.0","id":"x","error":{"code":-32601,"message":"not found"}}`)
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	require.Equal(t, -32601, resp.Error.Code)
}

func TestDefaultInitializeParams(t *testing.T) {
	params := DefaultInitializeParams()
	require.Equal(t, ProtocolVersion, params.ProtocolVersion)
	require.Equal(t, ClientName, params.ClientInfo.Name)
	_, ok := params.Capabilities["tools"]
	require.True(t, ok, "expected tools capability to be advertised")
}
