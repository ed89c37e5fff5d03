// Command demo wires the nine components behind a Core and drives one
// ReAct turn for the query given as the first command-line argument (or a
// built-in default query), printing each event as it streams. It exists to
// exercise Core.Stream end to end, not as a production entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/aws-idp/agentcore/agentctx"
	"github.com/aws-idp/agentcore/checkpoint/memory"
	"github.com/aws-idp/agentcore/conversation"
	"github.com/aws-idp/agentcore/core"
	"github.com/aws-idp/agentcore/mcphealth"
	anthropicmodel "github.com/aws-idp/agentcore/model/anthropic"
	"github.com/aws-idp/agentcore/prompt"
	"github.com/aws-idp/agentcore/promptregistry"
	"github.com/aws-idp/agentcore/tools"
)

// echoAggregator stands in for a real MCP tool-server aggregator: it
// reports a single always-available tool so the health checker can pass.
type echoAggregator struct{ specs []tools.ToolSpec }

func (a echoAggregator) ListTools(ctx context.Context) ([]tools.ToolSpec, error) {
	return a.specs, nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	query := "What can you help me with?"
	if len(os.Args) > 1 {
		query = os.Args[1]
	}

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return errors.New("ANTHROPIC_API_KEY must be set")
	}
	client, err := anthropicmodel.NewFromAPIKey(apiKey, string(sdk.ModelClaudeSonnet4_5_20250929), 4096, 0)
	if err != nil {
		return fmt.Errorf("build model client: %w", err)
	}

	registry := tools.NewRegistry()
	echoSpec := tools.ToolSpec{
		Name:        "echo",
		Description: "Echoes the provided text back to the caller.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"text": map[string]any{"type": "string"}},
			"required":   []string{"text"},
		},
	}
	if err := registry.Register(echoSpec, func(ctx context.Context, args map[string]any, actx agentctx.AgentContext) (tools.RawToolResult, error) {
		text, _ := args["text"].(string)
		return tools.RawToolResult{Success: true, Message: text}, nil
	}); err != nil {
		return fmt.Errorf("register echo tool: %w", err)
	}

	health := mcphealth.New(echoAggregator{specs: []tools.ToolSpec{echoSpec}})
	health.ForceCheck(context.Background())

	prompts, err := promptregistry.New(prompt.DefaultSources())
	if err != nil {
		return fmt.Errorf("build prompt registry: %w", err)
	}

	c := core.New(conversation.New(), memory.New(), registry, health, prompts, client, core.DefaultConfig())

	ch := c.Stream(context.Background(), core.StreamInput{
		Query:    query,
		Mode:     core.ModeReact,
		ThreadID: "demo-thread",
	})
	for ev := range ch {
		b, _ := json.Marshal(ev)
		fmt.Println(string(b))
	}
	return nil
}
