package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/rewind"
	"github.com/aretw0/rewind/internal/config"
	mcpadapter "github.com/aretw0/rewind/pkg/adapters/mcp"
	"github.com/aretw0/rewind/pkg/adapters/memory"
	openaiadapter "github.com/aretw0/rewind/pkg/adapters/openai"
	redisadapter "github.com/aretw0/rewind/pkg/adapters/redis"
	"github.com/aretw0/rewind/pkg/domain"
	"github.com/aretw0/rewind/pkg/ports"
	goredis "github.com/redis/go-redis/v9"
)

// BuildAgent wires an Agent from the loaded configuration with standard CLI
// conventions. The returned cleanup function releases external connections
// (Redis client, MCP subprocess) and must be called when the agent is done.
func BuildAgent(ctx context.Context, cfg config.Config, logger *slog.Logger, extra ...rewind.Option) (*rewind.Agent, func(), error) {
	apiKey := os.Getenv(cfg.Model.APIKeyEnv)
	if apiKey == "" {
		return nil, nil, fmt.Errorf("environment variable %s is not set", cfg.Model.APIKeyEnv)
	}
	model := openaiadapter.New(apiKey, cfg.Model.Name)

	var tools ports.ToolDispatcher = noTools{}
	if cfg.MCP.Command != "" {
		dispatcher, err := mcpadapter.NewStdio(ctx, cfg.MCP.Command, cfg.MCP.Env, cfg.MCP.Args...)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to MCP server: %w", err)
		}
		tools = dispatcher
	}

	store, cleanup, err := BuildStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := []rewind.Option{
		rewind.WithStore(store),
		rewind.WithLogger(logger),
		rewind.WithStepBudget(cfg.StepBudget),
	}
	if cfg.SystemPrompt != "" {
		opts = append(opts, rewind.WithSystemPrompt(cfg.SystemPrompt))
	}
	opts = append(opts, extra...)

	return rewind.New(model, tools, opts...), cleanup, nil
}

// BuildStore creates the checkpoint store selected by the configuration.
// Commands that only inspect checkpoints use this directly, without paying
// for a model client.
func BuildStore(cfg config.Config) (ports.CheckpointStore, func(), error) {
	switch cfg.Store.Backend {
	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: cfg.Store.Redis.Addr})
		var opts []redisadapter.Option
		if cfg.Store.Redis.Prefix != "" {
			opts = append(opts, redisadapter.WithPrefix(cfg.Store.Redis.Prefix))
		}
		cleanup := func() { _ = client.Close() }
		return redisadapter.NewFromClient(client, opts...), cleanup, nil
	case "memory":
		return memory.NewStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// noTools serves an empty catalog when no MCP server is configured.
// The model never sees tool definitions, so Dispatch is unreachable in
// normal operation.
type noTools struct{}

func (noTools) Dispatch(ctx context.Context, call domain.ToolCall) (domain.Message, error) {
	return domain.Message{}, fmt.Errorf("no tool server configured, cannot execute %q", call.Name)
}

func (noTools) Catalog() []domain.Tool { return nil }
