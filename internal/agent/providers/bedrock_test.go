package providers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sigmasight/agentcore/internal/agent"
)

func TestNewBedrockProviderAppliesDefaults(t *testing.T) {
	p, err := NewBedrockProvider(context.Background(), BedrockConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.defaultModel == "" {
		t.Error("expected a default model")
	}
	if p.Name() != "bedrock" {
		t.Errorf("expected name bedrock, got %q", p.Name())
	}
	if !p.SupportsTools() {
		t.Error("expected bedrock provider to support tools")
	}
	if len(p.Models()) == 0 {
		t.Error("expected at least one model")
	}
}

func TestBedrockConvertMessagesSkipsEmptyContent(t *testing.T) {
	p, err := NewBedrockProvider(context.Background(), BedrockConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	messages := []agent.CompletionMessage{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: ""},
	}
	converted, err := p.convertMessages(messages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(converted) != 1 {
		t.Fatalf("expected the empty-content message to be skipped, got %d messages", len(converted))
	}
}

func TestToBedrockToolsFallsBackOnBadSchema(t *testing.T) {
	tools := []agent.Tool{{Name: "lookup", Description: "d", Schema: json.RawMessage("not json")}}
	cfg := toBedrockTools(tools)
	if len(cfg.Tools) != 1 {
		t.Fatalf("expected one converted tool, got %d", len(cfg.Tools))
	}
}
