package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sigmasight/agentcore/internal/agenterr"
	"github.com/sigmasight/agentcore/internal/auth"
	"github.com/sigmasight/agentcore/internal/dataclient"
	"github.com/sigmasight/agentcore/internal/reqcontext"
	"github.com/sigmasight/agentcore/internal/store"
	"github.com/sigmasight/agentcore/pkg/models"
)

const portfolioDataQualitySchema = `{
	"type": "object",
	"properties": {
		"portfolio_id": {"type": "string", "minLength": 1},
		"check_factors": {"type": "boolean"},
		"check_correlations": {"type": "boolean"}
	},
	"required": ["portfolio_id"],
	"additionalProperties": false
}`

// PortfolioDataQuality implements the portfolio-data-quality tool: flags
// missing/stale data and factor or correlation gaps for a portfolio.
type PortfolioDataQuality struct {
	Client *dataclient.Client
	Store  store.Store
	Clock  func() time.Time
}

func (t *PortfolioDataQuality) Name() string { return "portfolio-data-quality" }
func (t *PortfolioDataQuality) Description() string {
	return "Check a portfolio's data quality: missing prices, stale factor exposures, correlation gaps."
}
func (t *PortfolioDataQuality) Schema() json.RawMessage {
	return json.RawMessage(portfolioDataQualitySchema)
}

type portfolioDataQualityInput struct {
	PortfolioID       string `json:"portfolio_id"`
	CheckFactors      *bool  `json:"check_factors,omitempty"`
	CheckCorrelations *bool  `json:"check_correlations,omitempty"`
}

func (t *PortfolioDataQuality) clock() time.Time {
	if t.Clock != nil {
		return t.Clock()
	}
	return time.Now()
}

func (t *PortfolioDataQuality) Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	var in portfolioDataQualityInput
	if err := json.Unmarshal(params, &in); err != nil {
		return nil, agenterr.NewToolError(t.Name(), agenterr.ClassInput, err)
	}

	checkFactors := true
	if in.CheckFactors != nil {
		checkFactors = *in.CheckFactors
	}
	checkCorrelations := true
	if in.CheckCorrelations != nil {
		checkCorrelations = *in.CheckCorrelations
	}

	applied := struct {
		PortfolioID       string `json:"portfolio_id"`
		CheckFactors      bool   `json:"check_factors"`
		CheckCorrelations bool   `json:"check_correlations"`
	}{in.PortfolioID, checkFactors, checkCorrelations}

	userID, _ := auth.UserIDFromContext(ctx)
	cacheKey := store.Key(userID, t.Name(), canonicalArgs(applied), "")
	cache := t.Store.Cache(reqcontext.ConversationID(ctx))

	env, err := cache.GetOrLoad(cacheKey, func() (models.Envelope, error) {
		bearer := reqcontext.BearerToken(ctx)
		result, err := t.Client.PortfolioDataQuality(ctx, bearer, dataclient.PortfolioDataQualityParams{
			PortfolioID:       in.PortfolioID,
			CheckFactors:      checkFactors,
			CheckCorrelations: checkCorrelations,
		})
		if err != nil {
			return models.Envelope{}, classifyUpstreamErr(t.Name(), err)
		}

		asOf := normalizeTimestamp(result.AsOf)
		if asOf == "" {
			asOf = nowUTC(t.clock)
		}

		data := struct {
			PortfolioID string                        `json:"portfolio_id"`
			AsOf        string                        `json:"as_of"`
			Issues      []dataclient.DataQualityIssue `json:"issues,omitempty"`
		}{result.PortfolioID, asOf, result.Issues}

		return buildEnvelope(asOf, in, applied, map[string]any{}, len(result.Issues), false, nil, data), nil
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}
