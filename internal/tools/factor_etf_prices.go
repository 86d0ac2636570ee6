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

const factorETFPricesSchema = `{
	"type": "object",
	"properties": {
		"lookback_days": {"type": "integer", "minimum": 1},
		"factors": {"type": "array", "items": {"type": "string"}}
	},
	"additionalProperties": false
}`

// FactorETFPrices implements the factor-etf-prices tool: historical prices
// for the ETFs proxying each named risk factor, resolving factor aliases to
// canonical tickers.
type FactorETFPrices struct {
	Client  *dataclient.Client
	Store   store.Store
	Aliases *FactorAliases
	Clock   func() time.Time

	// DefaultLookbackDays is the factor-etf-prices default (150 per §4.2's
	// tool catalog), distinct from prices-historical's 90-day default.
	DefaultLookbackDays int
}

func (t *FactorETFPrices) Name() string { return "factor-etf-prices" }
func (t *FactorETFPrices) Description() string {
	return "Fetch historical prices for the ETFs proxying named risk factors (market, value, growth, momentum, quality, size, low_volatility)."
}
func (t *FactorETFPrices) Schema() json.RawMessage { return json.RawMessage(factorETFPricesSchema) }

type factorETFPricesInput struct {
	LookbackDays *int     `json:"lookback_days,omitempty"`
	Factors      []string `json:"factors,omitempty"`
}

func (t *FactorETFPrices) clock() time.Time {
	if t.Clock != nil {
		return t.Clock()
	}
	return time.Now()
}

func (t *FactorETFPrices) Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	var in factorETFPricesInput
	if err := json.Unmarshal(params, &in); err != nil {
		return nil, agenterr.NewToolError(t.Name(), agenterr.ClassInput, err)
	}

	lookback := t.DefaultLookbackDays
	if lookback <= 0 {
		lookback = 150
	}
	if in.LookbackDays != nil {
		lookback = *in.LookbackDays
	}

	requestedFactors := in.Factors
	var symbols []string
	if len(requestedFactors) == 0 {
		symbols = t.Aliases.All()
	} else {
		symbols = t.Aliases.ResolveAll(requestedFactors)
	}

	applied := struct {
		LookbackDays int      `json:"lookback_days"`
		Symbols      []string `json:"symbols"`
	}{lookback, symbols}

	userID, _ := auth.UserIDFromContext(ctx)
	cacheKey := store.Key(userID, t.Name(), canonicalArgs(applied), "")
	cache := t.Store.Cache(reqcontext.ConversationID(ctx))

	env, err := cache.GetOrLoad(cacheKey, func() (models.Envelope, error) {
		bearer := reqcontext.BearerToken(ctx)
		result, err := t.Client.FactorETFPrices(ctx, bearer, dataclient.FactorETFPricesParams{
			LookbackDays: lookback,
			Symbols:      symbols,
		})
		if err != nil {
			return models.Envelope{}, classifyUpstreamErr(t.Name(), err)
		}

		for i := range result.Series {
			for j := range result.Series[i].Bars {
				result.Series[i].Bars[j].Date = normalizeTimestamp(result.Series[i].Bars[j].Date)
			}
		}

		asOf := normalizeTimestamp(result.AsOf)
		if asOf == "" {
			asOf = nowUTC(t.clock)
		}

		data := struct {
			AsOf   string                      `json:"as_of"`
			Series []dataclient.SymbolSeries `json:"series"`
		}{asOf, result.Series}

		return buildEnvelope(asOf, in, applied, map[string]any{}, len(result.Series), false, nil, data), nil
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}
