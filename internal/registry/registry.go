// Package registry implements the tool registry: a process-wide catalog of
// callable tools keyed by name, with JSON-schema validation compiled once at
// startup and per-provider tool-list adapters.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/sigmasight/agentcore/internal/agenterr"
)

// Tool is an executable, LLM-invocable unit of the tool layer. Implementations
// live in internal/tools; the registry only knows about descriptors.
type Tool interface {
	// Name is the wire name used by tool_call events and LLM function calling.
	Name() string

	// Description is shown to the model to help it decide when to call this tool.
	Description() string

	// Schema is the JSON Schema (draft 2020-12 compatible) describing accepted input.
	Schema() json.RawMessage

	// Execute runs the tool. params has already been validated against Schema
	// by the registry before Execute is called.
	Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error)
}

// Registry holds compiled tool descriptors, keyed by name.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Register compiles tool's JSON Schema and adds it to the registry under its
// name, replacing any existing tool of the same name. It returns an error
// immediately if the schema fails to compile — schema validity is a
// startup-time defect, never a request-time surprise.
func (r *Registry) Register(tool Tool) error {
	compiled, err := compileSchema(tool.Name(), tool.Schema())
	if err != nil {
		return fmt.Errorf("registry: compile schema for tool %q: %w", tool.Name(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
	r.schemas[tool.Name()] = compiled
	return nil
}

// MustRegister panics on a compile failure. Intended for use during process
// wiring where a bad descriptor must halt startup, not be swallowed.
func (r *Registry) MustRegister(tool Tool) {
	if err := r.Register(tool); err != nil {
		panic(err)
	}
}

// Get returns the tool registered under name, if any.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Validate checks params against the compiled schema for name. It is called
// by the dispatch path before Execute so every handler can assume well-formed
// input.
func (r *Registry) Validate(name string, params json.RawMessage) error {
	r.mu.RLock()
	schema, ok := r.schemas[name]
	r.mu.RUnlock()
	if !ok {
		return agenterr.NewToolError(name, agenterr.ClassInput, fmt.Errorf("%w: %s", agenterr.ErrUnknownTool, name))
	}

	var decoded any
	if err := json.Unmarshal(params, &decoded); err != nil {
		return agenterr.NewToolError(name, agenterr.ClassInput, fmt.Errorf("decode tool input: %w", err))
	}
	if err := schema.Validate(decoded); err != nil {
		return agenterr.NewToolError(name, agenterr.ClassInput, fmt.Errorf("schema violation: %w", err))
	}
	return nil
}

// Execute validates params against name's schema, then dispatches to the
// registered tool. Unknown tool names and schema violations both return a
// non-retryable agenterr.ToolError; the caller never has to special-case them.
func (r *Registry) Execute(ctx context.Context, name string, params json.RawMessage) (json.RawMessage, error) {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, agenterr.NewToolError(name, agenterr.ClassInput, fmt.Errorf("%w: %s", agenterr.ErrUnknownTool, name))
	}

	if err := r.Validate(name, params); err != nil {
		return nil, err
	}

	return tool.Execute(ctx, params)
}

// Names returns all registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// All returns every registered tool, sorted by name. Used to build the
// provider-specific tool list handed to the LLM on each completion request.
func (r *Registry) All() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make([]Tool, 0, len(r.tools))
	for _, name := range r.sortedNamesLocked() {
		tools = append(tools, r.tools[name])
	}
	return tools
}

func (r *Registry) sortedNamesLocked() []string {
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var (
	schemaCacheMu sync.Mutex
	schemaCache   = make(map[string]*jsonschema.Schema)
)

// compileSchema compiles raw with a fresh compiler using the library's
// default draft, caching by tool name + schema bytes so repeated
// Register calls with the same descriptor (e.g. in tests) do not recompile.
func compileSchema(toolName string, raw json.RawMessage) (*jsonschema.Schema, error) {
	key := toolName + ":" + string(raw)

	schemaCacheMu.Lock()
	if cached, ok := schemaCache[key]; ok {
		schemaCacheMu.Unlock()
		return cached, nil
	}
	schemaCacheMu.Unlock()

	compiler := jsonschema.NewCompiler()
	resourceName := toolName + ".schema.json"
	if err := compiler.AddResource(resourceName, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	compiled, err := compiler.Compile(resourceName)
	if err != nil {
		return nil, err
	}

	schemaCacheMu.Lock()
	schemaCache[key] = compiled
	schemaCacheMu.Unlock()

	return compiled, nil
}
