// Package httpapi exposes the bridge's caller-facing command surface (spec
// §6) over HTTP: JSON endpoints mirroring each command, plus the
// `/proxy/<name>` forwarder that host-rewritten configs' curl commands hit.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"goa.design/clue/log"

	"github.com/archestra-ai/mcp-bridge/internal/bridge"
	"github.com/archestra-ai/mcp-bridge/internal/hostconfig"
)

// Server wires a Bridge and a Configurator onto an http.Handler.
type Server struct {
	bridge       *bridge.Bridge
	configurator *hostconfig.Configurator
	mux          *http.ServeMux
}

// New builds the HTTP handler tree for the bridge's caller-facing commands.
func New(b *bridge.Bridge, c *hostconfig.Configurator) *Server {
	s := &Server{bridge: b, configurator: c, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /mcp/servers/start", s.handleStart)
	s.mux.HandleFunc("POST /mcp/servers/stop", s.handleStop)
	s.mux.HandleFunc("GET /mcp/tools", s.handleTools)
	s.mux.HandleFunc("GET /mcp/servers/status", s.handleStatus)
	s.mux.HandleFunc("POST /mcp/tools/execute", s.handleExecute)
	s.mux.HandleFunc("GET /mcp/debug", s.handleDebug)
	s.mux.HandleFunc("GET /hosts/supported", s.handleSupportedHosts)
	s.mux.HandleFunc("GET /hosts/connected", s.handleConnectedHosts)
	s.mux.HandleFunc("POST /hosts/connect", s.handleConnect)
	s.mux.HandleFunc("POST /hosts/disconnect", s.handleDisconnect)
	s.mux.HandleFunc("POST /proxy/", s.handleProxy)
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError surfaces every failure as a string message, per spec §6.
func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type startRequest struct {
	Name    string   `json:"name"`
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.bridge.StartPersistentMCPServer(r.Context(), req.Name, req.Command, req.Args); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, struct{}{})
}

type stopRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	var req stopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.bridge.StopPersistentMCPServer(req.Name); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, struct{}{})
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.bridge.GetMCPTools())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.bridge.GetMCPServerStatus())
}

type executeRequest struct {
	ServerName string          `json:"serverName"`
	ToolName   string          `json:"toolName"`
	Arguments  json.RawMessage `json:"arguments"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := s.bridge.ExecuteMCPTool(r.Context(), req.ServerName, req.ToolName, req.Arguments)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(result)
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, s.bridge.DebugMCPBridge())
}

func (s *Server) handleSupportedHosts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, hostconfig.SupportedClientNames())
}

func (s *Server) handleConnectedHosts(w http.ResponseWriter, r *http.Request) {
	clients, err := s.configurator.ListConnected(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, clients)
}

type hostRequest struct {
	ClientName string `json:"clientName"`
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req hostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.configurator.Connect(r.Context(), req.ClientName); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, struct{}{})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	var req hostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.configurator.Disconnect(r.Context(), req.ClientName); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, struct{}{})
}

// handleProxy implements the curl target every archestra.ai-tagged
// mcpServers entry points at: POST /proxy/<server-name> with the tool call
// JSON on stdin, forwarded to that server via ExecuteMCPTool.
func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	serverName := strings.TrimPrefix(r.URL.Path, "/proxy/")
	if serverName == "" {
		writeError(w, http.StatusBadRequest, errMissingServerName)
		return
	}

	var payload struct {
		ToolName  string          `json:"toolName"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.bridge.ExecuteMCPTool(r.Context(), serverName, payload.ToolName, payload.Arguments)
	if err != nil {
		log.Print(r.Context(), log.KV{K: "server", V: serverName}, log.KV{K: "event", V: "proxy_error"}, log.KV{K: "error", V: err.Error()})
		writeError(w, http.StatusBadGateway, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(result)
}

var errMissingServerName = &proxyError{"missing server name in /proxy/<name> path"}

type proxyError struct{ msg string }

func (e *proxyError) Error() string { return e.msg }
