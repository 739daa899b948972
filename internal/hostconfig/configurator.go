package hostconfig

import (
	"bytes"
	"context"
	"encoding/json"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"goa.design/clue/log"

	"github.com/archestra-ai/mcp-bridge/internal/hostconfig/store"
)

// ServerLister is the live source of truth for "which MCP servers are
// available to route traffic to". DESIGN.md's open question resolution (a):
// this is satisfied by *bridge.Registry.ListNames, not a stub.
type ServerLister interface {
	ListNames() []string
}

// Configurator implements C8: it merges/unmerges archestra.ai-tagged
// entries into a host's JSON config and records connection state in a
// store.Store.
type Configurator struct {
	HTTPAddr string
	Servers  ServerLister
	Store    store.Store
}

// New returns a Configurator wired to the given HTTP address (used to build
// the curl proxy commands), server lister, and persistence backend.
func New(httpAddr string, servers ServerLister, st store.Store) *Configurator {
	return &Configurator{HTTPAddr: httpAddr, Servers: servers, Store: st}
}

// Connect installs an mcpServers entry for every currently known server
// into clientName's config file and records the client as connected.
func (c *Configurator) Connect(ctx context.Context, clientName string) error {
	path, err := ConfigPathFor(clientName)
	if err != nil {
		return err
	}

	config, err := readConfigFile(path)
	if err != nil {
		return err
	}

	servers := c.Servers.ListNames()
	log.Print(ctx, log.KV{K: "client", V: clientName}, log.KV{K: "event", V: "connecting"}, log.KV{K: "servers", V: len(servers)})

	mcpServers, ok := config["mcpServers"].(map[string]any)
	if !ok {
		mcpServers = make(map[string]any)
	}
	for _, name := range servers {
		serverConfig := CreateArchestraServerConfig(c.HTTPAddr, name)
		mcpServers[name+archestraSuffix] = serverConfig
	}
	config["mcpServers"] = mcpServers

	if err := writeConfigFile(path, config); err != nil {
		return err
	}

	now := time.Now()
	createdAt := now
	if existing, err := c.Store.Get(ctx, clientName); err == nil {
		createdAt = existing.CreatedAt
	}
	return c.Store.Save(ctx, &store.Client{
		ClientName:    clientName,
		IsConnected:   true,
		LastConnected: &now,
		ConfigPath:    &path,
		CreatedAt:     createdAt,
		UpdatedAt:     now,
	})
}

// Disconnect removes every archestra.ai-tagged mcpServers entry from
// clientName's config file and deletes its connection record.
func (c *Configurator) Disconnect(ctx context.Context, clientName string) error {
	path, err := ConfigPathFor(clientName)
	if err != nil {
		return err
	}

	config, err := readConfigFile(path)
	if err != nil {
		return err
	}

	if mcpServers, ok := config["mcpServers"].(map[string]any); ok {
		for key := range mcpServers {
			if strings.HasSuffix(key, archestraSuffix) {
				delete(mcpServers, key)
			}
		}
		config["mcpServers"] = mcpServers
	}

	if err := writeConfigFile(path, config); err != nil {
		return err
	}

	if err := c.Store.Delete(ctx, clientName); err != nil && err != store.ErrNotFound {
		return err
	}
	return nil
}

// ListConnected returns every client record currently marked connected.
func (c *Configurator) ListConnected(ctx context.Context) ([]*store.Client, error) {
	return c.Store.ListConnected(ctx)
}

// readConfigFile returns {"mcpServers": {}} for a missing or empty file,
// matching read_config_file.
func readConfigFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{"mcpServers": map[string]any{}}, nil
		}
		return nil, &HostIOError{Path: path, Op: "read", Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{"mcpServers": map[string]any{}}, nil
	}
	var config map[string]any
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, &HostIOError{Path: path, Op: "parse", Err: err}
	}
	return config, nil
}

// writeConfigFile serializes config as pretty JSON, creates parent
// directories as needed, writes the file, then reads it back and logs (but
// does not fail on) a byte mismatch — the non-fatal round-trip verification
// from SPEC_FULL.md SUPPLEMENTED FEATURES item 4.
func writeConfigFile(path string, config map[string]any) error {
	if parent := filepath.Dir(path); parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return &HostIOError{Path: path, Op: "create directory for", Err: err}
		}
	}

	content, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return &HostIOError{Path: path, Op: "serialize", Err: err}
	}

	if err := os.WriteFile(path, content, 0o644); err != nil {
		return &HostIOError{Path: path, Op: "write", Err: err}
	}

	if written, err := os.ReadFile(path); err == nil {
		if !bytes.Equal(written, content) {
			stdlog.Printf("warning: config file %s written but content doesn't match", path)
		}
	}
	return nil
}
