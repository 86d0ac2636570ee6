package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sigmasight/agentcore/internal/agenterr"
	"github.com/sigmasight/agentcore/internal/auth"
	"github.com/sigmasight/agentcore/internal/config"
	"github.com/sigmasight/agentcore/internal/dataclient"
	"github.com/sigmasight/agentcore/internal/reqcontext"
	"github.com/sigmasight/agentcore/internal/store"
	"github.com/sigmasight/agentcore/pkg/models"
)

const positionsDetailsSchema = `{
	"type": "object",
	"properties": {
		"portfolio_id": {"type": "string", "minLength": 1},
		"position_ids": {"type": "array", "items": {"type": "string"}, "minItems": 1},
		"include_closed": {"type": "boolean"}
	},
	"additionalProperties": false
}`

// ErrMissingSelector is returned when neither portfolio_id nor position_ids
// was supplied — a non-retryable input error per §8 scenario 4.
var ErrMissingSelector = errors.New("portfolio_id or position_ids is required")

// PositionsDetails implements the positions-details tool: row-level detail
// for either a whole portfolio or an explicit set of position ids.
type PositionsDetails struct {
	Client *dataclient.Client
	Store  store.Store
	Caps   config.CapsConfig
	Clock  func() time.Time
}

func (t *PositionsDetails) Name() string { return "positions-details" }
func (t *PositionsDetails) Description() string {
	return "Fetch row-level position detail for a portfolio or an explicit set of position ids."
}
func (t *PositionsDetails) Schema() json.RawMessage { return json.RawMessage(positionsDetailsSchema) }

type positionsDetailsInput struct {
	PortfolioID   string   `json:"portfolio_id,omitempty"`
	PositionIDs   []string `json:"position_ids,omitempty"`
	IncludeClosed *bool    `json:"include_closed,omitempty"`
}

func (t *PositionsDetails) clock() time.Time {
	if t.Clock != nil {
		return t.Clock()
	}
	return time.Now()
}

func (t *PositionsDetails) Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	var in positionsDetailsInput
	if err := json.Unmarshal(params, &in); err != nil {
		return nil, agenterr.NewToolError(t.Name(), agenterr.ClassInput, err)
	}

	if in.PortfolioID == "" && len(in.PositionIDs) == 0 {
		return nil, agenterr.NewToolError(t.Name(), agenterr.ClassInput, ErrMissingSelector)
	}

	includeClosed := false
	if in.IncludeClosed != nil {
		includeClosed = *in.IncludeClosed
	}

	applied := struct {
		PortfolioID   string   `json:"portfolio_id,omitempty"`
		PositionIDs   []string `json:"position_ids,omitempty"`
		IncludeClosed bool     `json:"include_closed"`
	}{in.PortfolioID, in.PositionIDs, includeClosed}

	userID, _ := auth.UserIDFromContext(ctx)
	cacheKey := store.Key(userID, t.Name(), canonicalArgs(applied), "")
	cache := t.Store.Cache(reqcontext.ConversationID(ctx))

	env, err := cache.GetOrLoad(cacheKey, func() (models.Envelope, error) {
		bearer := reqcontext.BearerToken(ctx)
		result, err := t.Client.PositionsDetails(ctx, bearer, dataclient.PositionsDetailsParams{
			PortfolioID:   in.PortfolioID,
			PositionIDs:   in.PositionIDs,
			IncludeClosed: includeClosed,
		})
		if err != nil {
			return models.Envelope{}, classifyUpstreamErr(t.Name(), err)
		}

		positions := result.Positions
		truncated := false
		maxRows := t.Caps.MaxPositionsRows
		var suggested any
		if maxRows > 0 && len(positions) > maxRows {
			positions = positions[:maxRows]
			truncated = true
			suggested = map[string]any{"note": fmt.Sprintf("result truncated to %d rows; narrow the selection for the remainder", maxRows)}
		}

		asOf := normalizeTimestamp(result.AsOf)
		if asOf == "" {
			asOf = nowUTC(t.clock)
		}

		data := struct {
			AsOf      string               `json:"as_of"`
			Positions []dataclient.Holding `json:"positions"`
		}{asOf, positions}

		limits := map[string]any{"max_positions_rows": maxRows}
		return buildEnvelope(asOf, in, applied, limits, len(positions), truncated, suggested, data), nil
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}
