// Package prompts implements C4, the prompt library: four mode-keyed system
// prompts loaded from embedded YAML, with templated context injection.
package prompts

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sigmasight/agentcore/pkg/models"
)

//go:embed embedded/*.yaml
var embeddedFS embed.FS

// entry is the on-disk shape of one mode's prompt definition.
type entry struct {
	ID              string `yaml:"id"`
	Version         string `yaml:"version"`
	TokenBudgetHint int    `yaml:"token_budget_hint"`
	Body            string `yaml:"body"`
}

// Library resolves a mode to its system prompt.
type Library struct {
	entries map[models.Mode]entry
}

// Context carries the values substituted into the {user_profile}, {as_of},
// and {caps} placeholders every mode's prompt defines.
type Context struct {
	UserProfile string
	AsOf        string
	Caps        string
}

// New loads and parses the embedded prompt definitions for all four modes.
// It panics if any embedded file is missing or malformed, since the prompt
// set is process-wide immutable state initialized once at startup — a bad
// embed is a build-time defect, not a runtime condition to recover from.
func New() *Library {
	files := map[models.Mode]string{
		models.ModeGreen:  "embedded/green.yaml",
		models.ModeBlue:   "embedded/blue.yaml",
		models.ModeIndigo: "embedded/indigo.yaml",
		models.ModeViolet: "embedded/violet.yaml",
	}

	entries := make(map[models.Mode]entry, len(files))
	for mode, path := range files {
		raw, err := embeddedFS.ReadFile(path)
		if err != nil {
			panic(fmt.Sprintf("prompts: missing embedded file %s: %v", path, err))
		}
		var e entry
		if err := yaml.Unmarshal(raw, &e); err != nil {
			panic(fmt.Sprintf("prompts: malformed embedded file %s: %v", path, err))
		}
		entries[mode] = e
	}

	return &Library{entries: entries}
}

// Resolve returns the resolved system message for mode and the
// (prompt_id, version) telemetry tuple. Returns an error if mode is not one
// of the four enumerated modes.
func (l *Library) Resolve(mode models.Mode, ctx Context) (message, promptID, version string, err error) {
	e, ok := l.entries[mode]
	if !ok {
		return "", "", "", fmt.Errorf("prompts: unknown mode %q", mode)
	}

	body := e.Body
	body = strings.ReplaceAll(body, "{user_profile}", ctx.UserProfile)
	body = strings.ReplaceAll(body, "{as_of}", ctx.AsOf)
	body = strings.ReplaceAll(body, "{caps}", ctx.Caps)

	return body, e.ID, e.Version, nil
}
