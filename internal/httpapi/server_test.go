package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/archestra-ai/mcp-bridge/internal/bridge"
	"github.com/archestra-ai/mcp-bridge/internal/hostconfig"
	"github.com/archestra-ai/mcp-bridge/internal/hostconfig/store/memory"
)

func newTestServer() *Server {
	b := bridge.New("")
	configurator := hostconfig.New("127.0.0.1:54587", b.Registry(), memory.New())
	return New(b, configurator)
}

func TestHandleToolsReturnsEmptyArray(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/mcp/tools", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got []bridge.MCPToolEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Empty(t, got)
}

func TestHandleStopUnknownServerReturns404(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/mcp/servers/stop", strings.NewReader(`{"name":"nope"}`))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	var got errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.NotEmpty(t, got.Error)
}

func TestHandleSupportedHosts(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/hosts/supported", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 3)
}

func TestHandleProxyRejectsMissingServerName(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/proxy/", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleExecuteUnknownServerReturnsBadGateway(t *testing.T) {
	s := newTestServer()
	body := `{"serverName":"nope","toolName":"sometool","arguments":{}}`
	req := httptest.NewRequest(http.MethodPost, "/mcp/tools/execute", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHandleConnectUnknownHostReturnsBadRequest(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/hosts/connect", strings.NewReader(`{"clientName":"notepad"}`))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
