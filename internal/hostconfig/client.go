// Package hostconfig implements C8: the external host configurator. It
// rewrites third-party JSON config files (Cursor, Claude Desktop, VS Code)
// to route their tool-protocol traffic back to this bridge over HTTP, and
// persists which hosts are currently connected.
package hostconfig

import (
	"fmt"
	"os"
	"path/filepath"
)

// Supported client names, matching CURSOR_CLIENT_NAME / CLAUDE_DESKTOP_CLIENT_NAME
// / VSCODE_CLIENT_NAME in the original.
const (
	ClientCursor = "cursor"
	ClientClaude = "claude"
	ClientVSCode = "vscode"
)

// SupportedClientNames lists every host this bridge knows how to configure,
// in the order get_supported_external_mcp_client_names returns them.
func SupportedClientNames() []string {
	return []string{ClientCursor, ClientClaude, ClientVSCode}
}

// ConfigPathFor resolves the fixed config file path for a supported client
// name, rooted at the user's home directory.
func ConfigPathFor(clientName string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	switch clientName {
	case ClientCursor:
		return filepath.Join(home, ".cursor", "mcp.json"), nil
	case ClientClaude:
		return filepath.Join(home, "Library", "Application Support", "Claude", "claude_desktop_config.json"), nil
	case ClientVSCode:
		return filepath.Join(home, ".vscode", "mcp.json"), nil
	default:
		return "", &UnknownHostError{ClientName: clientName}
	}
}

// UnknownHostError is returned for a client name outside SupportedClientNames().
type UnknownHostError struct {
	ClientName string
}

func (e *UnknownHostError) Error() string {
	return fmt.Sprintf("unknown client: %s", e.ClientName)
}

// HostIOError wraps a filesystem failure reading or writing a host's config.
type HostIOError struct {
	Path string
	Op   string
	Err  error
}

func (e *HostIOError) Error() string {
	return fmt.Sprintf("failed to %s config file %s: %v", e.Op, e.Path, e.Err)
}

func (e *HostIOError) Unwrap() error { return e.Err }

// archestraSuffix tags every mcpServers entry this bridge installs, so
// Disconnect can find and remove exactly (and only) its own entries.
const archestraSuffix = " (archestra.ai)"

// ServerConfig is the shape written under each installed mcpServers entry:
// a curl invocation that proxies the host's tool-call JSON to this bridge's
// HTTP listener.
type ServerConfig struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

// CreateArchestraServerConfig builds the curl-based server config that
// routes serverName's traffic through httpAddr's /proxy/<name> endpoint.
func CreateArchestraServerConfig(httpAddr, serverName string) ServerConfig {
	return ServerConfig{
		Command: "curl",
		Args: []string{
			"-X", "POST",
			fmt.Sprintf("http://%s/proxy/%s", httpAddr, serverName),
			"-H", "Content-Type: application/json",
			"-d", "@-",
		},
	}
}
