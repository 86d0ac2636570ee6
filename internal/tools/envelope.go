package tools

import (
	"encoding/json"

	"github.com/sigmasight/agentcore/pkg/models"
)

// mustJSON marshals v to json.RawMessage, panicking on failure. Only used
// for values the handler itself constructs (caps structs, applied-params
// structs), never for data crossing a trust boundary.
func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return json.RawMessage(b)
}

// buildEnvelope assembles the standardized success envelope described in §3:
// meta.as_of, requested/applied/limits, rows_returned, truncated, and an
// optional suggested_params, wrapping data.
func buildEnvelope(asOf string, requested, applied, limits any, rowsReturned int, truncated bool, suggestedParams any, data any) models.Envelope {
	var suggested json.RawMessage
	if suggestedParams != nil {
		suggested = mustJSON(suggestedParams)
	}
	return models.Envelope{
		Meta: models.Meta{
			AsOf:            asOf,
			Requested:       mustJSON(requested),
			Applied:         mustJSON(applied),
			Limits:          mustJSON(limits),
			RowsReturned:    rowsReturned,
			Truncated:       truncated,
			SuggestedParams: suggested,
		},
		Data: mustJSON(data),
	}
}

// canonicalArgs produces a deterministic JSON encoding of v for use as the
// cache-key component. Field order follows v's Go struct declaration order
// (encoding/json preserves it), which is stable across calls for a fixed
// type — sufficient determinism for identical logical requests to collapse
// to the same key without needing a general-purpose canonicalization pass.
func canonicalArgs(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
