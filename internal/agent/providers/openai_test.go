package providers

import (
	"context"
	"testing"

	"github.com/sigmasight/agentcore/internal/agent"
)

func TestNewOpenAIProviderWithoutKeyFailsFastOnComplete(t *testing.T) {
	p := NewOpenAIProvider("")
	if p.Name() != "openai" {
		t.Fatalf("expected name openai, got %q", p.Name())
	}
	if !p.SupportsTools() {
		t.Fatal("expected openai provider to support tools")
	}

	_, err := p.Complete(context.Background(), &agent.CompletionRequest{Model: "gpt-4o"})
	if err == nil {
		t.Fatal("expected an error when no API key is configured")
	}
}

func TestNewOpenAIProviderWithKeyConstructsClient(t *testing.T) {
	p := NewOpenAIProvider("test-key")
	if len(p.Models()) == 0 {
		t.Fatal("expected at least one model")
	}
}

func TestOpenAIConvertToolsFallsBackOnBadSchema(t *testing.T) {
	p := NewOpenAIProvider("test-key")
	tools := p.convertTools([]agent.Tool{{Name: "broken", Description: "d", Schema: []byte("not json")}})
	if len(tools) != 1 {
		t.Fatalf("expected one converted tool, got %d", len(tools))
	}
	if tools[0].Function.Parameters == nil {
		t.Fatal("expected a fallback empty-object schema")
	}
}
