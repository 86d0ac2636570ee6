package agent

import "encoding/json"

// previewLimit bounds how many elements of any top-level array in a tool's
// data payload are surfaced in the client-facing tool_result preview. The
// full payload always goes back to the model; only the client-visible copy
// is capped.
const previewLimit = 3

// buildPreview reduces a tool's data payload to a client-safe preview: any
// top-level JSON array is truncated to previewLimit entries with a count
// annotation; everything else passes through unchanged. Malformed JSON
// yields a nil preview rather than an error, since a preview is advisory.
func buildPreview(data json.RawMessage) any {
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return decoded
	}

	preview := make(map[string]any, len(obj))
	for k, v := range obj {
		if arr, ok := v.([]any); ok && len(arr) > previewLimit {
			preview[k] = arr[:previewLimit]
			preview[k+"_truncated_for_preview"] = len(arr)
			continue
		}
		preview[k] = v
	}
	return preview
}
