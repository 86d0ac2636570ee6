package tools

import (
	"context"
	"encoding/json"
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

const portfolioCompleteSchema = `{
	"type": "object",
	"properties": {
		"portfolio_id": {"type": "string", "minLength": 1},
		"include_positions": {"type": "boolean"},
		"include_cash": {"type": "boolean"},
		"as_of_date": {"type": "string"}
	},
	"required": ["portfolio_id"],
	"additionalProperties": false
}`

// PortfolioComplete implements the portfolio-complete tool: a full snapshot
// of a portfolio's positions and cash, optionally as of a historical date.
type PortfolioComplete struct {
	Client *dataclient.Client
	Store  store.Store
	Caps   config.CapsConfig
	Clock  func() time.Time
}

func (t *PortfolioComplete) Name() string        { return "portfolio-complete" }
func (t *PortfolioComplete) Description() string {
	return "Fetch a portfolio's full snapshot: positions and cash, optionally as of a historical date."
}
func (t *PortfolioComplete) Schema() json.RawMessage { return json.RawMessage(portfolioCompleteSchema) }

type portfolioCompleteInput struct {
	PortfolioID      string `json:"portfolio_id"`
	IncludePositions *bool  `json:"include_positions,omitempty"`
	IncludeCash      *bool  `json:"include_cash,omitempty"`
	AsOfDate         string `json:"as_of_date,omitempty"`
}

func (t *PortfolioComplete) clock() time.Time {
	if t.Clock != nil {
		return t.Clock()
	}
	return time.Now()
}

func (t *PortfolioComplete) Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	var in portfolioCompleteInput
	if err := json.Unmarshal(params, &in); err != nil {
		return nil, agenterr.NewToolError(t.Name(), agenterr.ClassInput, err)
	}

	includePositions := true
	if in.IncludePositions != nil {
		includePositions = *in.IncludePositions
	}
	includeCash := true
	if in.IncludeCash != nil {
		includeCash = *in.IncludeCash
	}
	asOfDate := in.AsOfDate

	applied := struct {
		PortfolioID      string `json:"portfolio_id"`
		IncludePositions bool   `json:"include_positions"`
		IncludeCash      bool   `json:"include_cash"`
		AsOfDate         string `json:"as_of_date"`
	}{in.PortfolioID, includePositions, includeCash, asOfDate}

	userID, _ := auth.UserIDFromContext(ctx)
	cacheKey := store.Key(userID, t.Name(), canonicalArgs(applied), asOfDate)
	cache := t.Store.Cache(reqcontext.ConversationID(ctx))

	env, err := cache.GetOrLoad(cacheKey, func() (models.Envelope, error) {
		return t.load(ctx, in, includePositions, includeCash, asOfDate, applied)
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

func (t *PortfolioComplete) load(ctx context.Context, in portfolioCompleteInput, includePositions, includeCash bool, asOfDate string, applied any) (models.Envelope, error) {
	bearer := reqcontext.BearerToken(ctx)
	result, err := t.Client.PortfolioComplete(ctx, bearer, dataclient.PortfolioCompleteParams{
		PortfolioID:      in.PortfolioID,
		IncludePositions: includePositions,
		IncludeCash:      includeCash,
		AsOfDate:         asOfDate,
	})
	if err != nil {
		return models.Envelope{}, classifyUpstreamErr(t.Name(), err)
	}

	positions := result.Positions
	truncated := false
	maxRows := t.Caps.MaxPortfolioPositionsRows
	var suggested any
	if maxRows > 0 && len(positions) > maxRows {
		positions = positions[:maxRows]
		truncated = true
		suggested = map[string]any{"note": fmt.Sprintf("result truncated to %d positions; narrow the request for the remainder", maxRows)}
	}

	asOf := normalizeTimestamp(result.AsOf)
	if asOf == "" {
		asOf = nowUTC(t.clock)
	}

	data := struct {
		PortfolioID string              `json:"portfolio_id"`
		AsOf        string              `json:"as_of"`
		Positions   []dataclient.Holding `json:"positions,omitempty"`
		Cash        float64             `json:"cash,omitempty"`
	}{
		PortfolioID: result.PortfolioID,
		AsOf:        asOf,
		Positions:   positions,
	}
	if includeCash {
		data.Cash = result.Cash
	}

	limits := map[string]any{"max_portfolio_positions_rows": maxRows}
	env := buildEnvelope(asOf, in, applied, limits, len(positions), truncated, suggested, data)
	return env, nil
}
