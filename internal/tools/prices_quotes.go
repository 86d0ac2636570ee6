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

const pricesQuotesSchema = `{
	"type": "object",
	"properties": {
		"symbols": {"type": "array", "items": {"type": "string"}, "minItems": 1},
		"include_options": {"type": "boolean"}
	},
	"required": ["symbols"],
	"additionalProperties": false
}`

// PricesQuotes implements the prices-quotes tool: current (or last-known)
// quotes for an explicit symbol list, truncated to the quote cap.
type PricesQuotes struct {
	Client *dataclient.Client
	Store  store.Store
	Caps   config.CapsConfig
	Clock  func() time.Time
}

func (t *PricesQuotes) Name() string        { return "prices-quotes" }
func (t *PricesQuotes) Description() string {
	return "Fetch current quotes for a list of ticker symbols."
}
func (t *PricesQuotes) Schema() json.RawMessage { return json.RawMessage(pricesQuotesSchema) }

type pricesQuotesInput struct {
	Symbols        []string `json:"symbols"`
	IncludeOptions *bool    `json:"include_options,omitempty"`
}

func (t *PricesQuotes) clock() time.Time {
	if t.Clock != nil {
		return t.Clock()
	}
	return time.Now()
}

func (t *PricesQuotes) Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	var in pricesQuotesInput
	if err := json.Unmarshal(params, &in); err != nil {
		return nil, agenterr.NewToolError(t.Name(), agenterr.ClassInput, err)
	}

	includeOptions := false
	if in.IncludeOptions != nil {
		includeOptions = *in.IncludeOptions
	}

	symbols := in.Symbols
	truncated := false
	var suggested any
	maxSymbols := t.Caps.MaxQuoteSymbols
	if maxSymbols > 0 && len(symbols) > maxSymbols {
		symbols = append([]string(nil), symbols[:maxSymbols]...)
		truncated = true
		suggested = map[string]any{"note": fmt.Sprintf("quote list truncated to %d symbols; request an explicit subset for the remainder", maxSymbols)}
	}

	applied := struct {
		Symbols        []string `json:"symbols"`
		IncludeOptions bool     `json:"include_options"`
	}{symbols, includeOptions}

	userID, _ := auth.UserIDFromContext(ctx)
	cacheKey := store.Key(userID, t.Name(), canonicalArgs(applied), "")
	cache := t.Store.Cache(reqcontext.ConversationID(ctx))

	env, err := cache.GetOrLoad(cacheKey, func() (models.Envelope, error) {
		bearer := reqcontext.BearerToken(ctx)
		result, err := t.Client.PricesQuotes(ctx, bearer, dataclient.PricesQuotesParams{
			Symbols:        symbols,
			IncludeOptions: includeOptions,
		})
		if err != nil {
			return models.Envelope{}, classifyUpstreamErr(t.Name(), err)
		}

		for i := range result.Quotes {
			result.Quotes[i].AsOf = normalizeTimestamp(result.Quotes[i].AsOf)
		}

		asOf := normalizeTimestamp(result.AsOf)
		if asOf == "" {
			asOf = nowUTC(t.clock)
		}

		data := struct {
			AsOf   string             `json:"as_of"`
			Quotes []dataclient.Quote `json:"quotes"`
		}{asOf, result.Quotes}

		limits := map[string]any{"max_quote_symbols": maxSymbols}
		return buildEnvelope(asOf, in, applied, limits, len(result.Quotes), truncated, suggested, data), nil
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}
