package tools

import (
	"errors"

	"github.com/sigmasight/agentcore/internal/agenterr"
	"github.com/sigmasight/agentcore/internal/dataclient"
)

// classifyUpstreamErr converts a dataclient error into the agenterr taxonomy
// tool handlers return: retryable backend faults become
// ClassUpstreamTransient, everything else ClassUpstreamPermanent.
func classifyUpstreamErr(toolName string, err error) error {
	var dcErr *dataclient.Error
	if errors.As(err, &dcErr) {
		if dcErr.Retryable {
			return agenterr.NewToolError(toolName, agenterr.ClassUpstreamTransient, dcErr)
		}
		return agenterr.NewToolError(toolName, agenterr.ClassUpstreamPermanent, dcErr)
	}
	return agenterr.NewToolError(toolName, agenterr.ClassUpstreamPermanent, err)
}
