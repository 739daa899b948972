// Package config loads process-level configuration from the environment,
// following registry/cmd/registry/main.go's env-var-with-default pattern
// through two helpers, envOr and envBoolOr.
package config

import (
	"os"
	"strconv"
)

// StoreBackend selects which hostconfig.Store implementation cmd/bridged
// wires up.
type StoreBackend string

const (
	StoreMemory StoreBackend = "memory"
	StoreMongo  StoreBackend = "mongo"
	StoreRedis  StoreBackend = "redis"
)

// Config is the full set of environment-derived settings for the bridge
// process.
type Config struct {
	HTTPAddr       string
	ProxyHost      string
	Store          StoreBackend
	MongoURL       string
	MongoDatabase  string
	RedisURL       string
	RedisPassword  string
	SandboxProfile string
	Debug          bool
}

// Load reads Config from the environment, applying the defaults named in
// SPEC_FULL.md's Configuration section. ProxyHost is distinct from
// HTTPAddr: HTTPAddr is what net.Listen binds (often a bare ":54587" to
// listen on all interfaces), while ProxyHost is the host:port baked into
// every curl command the host configurator (C8) writes, matching the
// literal `http://localhost:54587/proxy/<name>` spec §6 requires.
func Load() Config {
	return Config{
		HTTPAddr:       envOr("BRIDGE_HTTP_ADDR", ":54587"),
		ProxyHost:      envOr("BRIDGE_PROXY_HOST", "localhost:54587"),
		Store:          StoreBackend(envOr("BRIDGE_STORE", string(StoreMemory))),
		MongoURL:       envOr("MONGO_URL", "mongodb://localhost:27017"),
		MongoDatabase:  envOr("MONGO_DATABASE", "archestra"),
		RedisURL:       envOr("REDIS_URL", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		SandboxProfile: os.Getenv("BRIDGE_SANDBOX_PROFILE"),
		Debug:          envBoolOr("BRIDGE_DEBUG", false),
	}
}

func envOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envBoolOr(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}
