// Command bridged runs the MCP process bridge: it supervises tool-protocol
// child processes and exposes their tools over HTTP, and rewrites external
// host configs (Cursor, Claude Desktop, VS Code) to route through it.
//
// # Configuration
//
// Environment variables:
//
//	BRIDGE_HTTP_ADDR         - HTTP listen address (default: ":54587")
//	BRIDGE_PROXY_HOST        - host:port baked into the curl commands the host configurator writes (default: "localhost:54587")
//	BRIDGE_STORE             - persistence backend: memory|mongo|redis (default: "memory")
//	MONGO_URL                - MongoDB connection URL (default: "mongodb://localhost:27017")
//	MONGO_DATABASE           - MongoDB database name (default: "archestra")
//	REDIS_URL                - Redis connection URL (default: "localhost:6379")
//	REDIS_PASSWORD           - Redis password (optional)
//	BRIDGE_SANDBOX_PROFILE   - path to a sandbox-exec profile (macOS only, optional)
//	BRIDGE_DEBUG             - enable debug logging (default: false)
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/redis/go-redis/v9"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	mongooptions "go.mongodb.org/mongo-driver/v2/mongo/options"
	clue "goa.design/clue/log"

	"github.com/archestra-ai/mcp-bridge/internal/bridge"
	"github.com/archestra-ai/mcp-bridge/internal/config"
	"github.com/archestra-ai/mcp-bridge/internal/hostconfig"
	"github.com/archestra-ai/mcp-bridge/internal/hostconfig/store"
	storememory "github.com/archestra-ai/mcp-bridge/internal/hostconfig/store/memory"
	storemongo "github.com/archestra-ai/mcp-bridge/internal/hostconfig/store/mongo"
	storeredis "github.com/archestra-ai/mcp-bridge/internal/hostconfig/store/redis"
	"github.com/archestra-ai/mcp-bridge/internal/httpapi"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	debugF := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg := config.Load()
	if *debugF {
		cfg.Debug = true
	}

	format := clue.FormatJSON
	if clue.IsTerminal() {
		format = clue.FormatTerminal
	}
	ctx := clue.Context(context.Background(), clue.WithFormat(format))
	if cfg.Debug {
		ctx = clue.Context(ctx, clue.WithDebug())
		clue.Debugf(ctx, "debug logging enabled")
	}

	st, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build store: %w", err)
	}
	defer closeStore()

	b := bridge.New(cfg.SandboxProfile)
	configurator := hostconfig.New(cfg.ProxyHost, b.Registry(), st)
	server := httpapi.New(b, configurator)

	clue.Print(ctx, clue.KV{K: "http-addr", V: cfg.HTTPAddr}, clue.KV{K: "store", V: string(cfg.Store)})
	return http.ListenAndServe(cfg.HTTPAddr, server)
}

func buildStore(ctx context.Context, cfg config.Config) (store.Store, func(), error) {
	switch cfg.Store {
	case config.StoreMongo:
		client, err := mongodriver.Connect(mongooptions.Client().ApplyURI(cfg.MongoURL))
		if err != nil {
			return nil, nil, fmt.Errorf("connect to mongo: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			return nil, nil, fmt.Errorf("ping mongo: %w", err)
		}
		collection := client.Database(cfg.MongoDatabase).Collection("external_mcp_clients")
		return storemongo.New(collection), func() { _ = client.Disconnect(ctx) }, nil

	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURL, Password: cfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		return storeredis.New(rdb), func() { _ = rdb.Close() }, nil

	default:
		return storememory.New(), func() {}, nil
	}
}
