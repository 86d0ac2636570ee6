package prompts

import (
	"strings"
	"testing"

	"github.com/sigmasight/agentcore/pkg/models"
)

func TestResolveSubstitutesPlaceholders(t *testing.T) {
	lib := New()

	msg, id, version, err := lib.Resolve(models.ModeBlue, Context{
		UserProfile: "retail investor, moderate risk tolerance",
		AsOf:        "2026-07-31T00:00:00Z",
		Caps:        "max 5 symbols per quote",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != "prompt.blue" {
		t.Fatalf("expected prompt.blue, got %s", id)
	}
	if version == "" {
		t.Fatal("expected non-empty version")
	}
	if strings.Contains(msg, "{as_of}") || strings.Contains(msg, "{user_profile}") || strings.Contains(msg, "{caps}") {
		t.Fatalf("expected all placeholders substituted, got: %s", msg)
	}
	if !strings.Contains(msg, "2026-07-31T00:00:00Z") {
		t.Fatal("expected as_of value present in resolved prompt")
	}
}

func TestResolveRejectsUnknownMode(t *testing.T) {
	lib := New()
	if _, _, _, err := lib.Resolve(models.Mode("ultraviolet"), Context{}); err == nil {
		t.Fatal("expected an error for an unknown mode")
	}
}

func TestAllFourModesLoad(t *testing.T) {
	lib := New()
	for _, mode := range []models.Mode{models.ModeGreen, models.ModeBlue, models.ModeIndigo, models.ModeViolet} {
		if _, _, _, err := lib.Resolve(mode, Context{AsOf: "x", UserProfile: "y", Caps: "z"}); err != nil {
			t.Fatalf("mode %s: %v", mode, err)
		}
	}
}
