package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/sigmasight/agentcore/internal/agenterr"
	"github.com/sigmasight/agentcore/internal/auth"
	"github.com/sigmasight/agentcore/internal/config"
	"github.com/sigmasight/agentcore/internal/dataclient"
	"github.com/sigmasight/agentcore/internal/reqcontext"
	"github.com/sigmasight/agentcore/internal/store"
	"github.com/sigmasight/agentcore/pkg/models"
)

const pricesHistoricalSchema = `{
	"type": "object",
	"properties": {
		"portfolio_id": {"type": "string", "minLength": 1},
		"lookback_days": {"type": "integer", "minimum": 1},
		"max_symbols": {"type": "integer", "minimum": 1},
		"selection_method": {"type": "string", "enum": ["top_by_value", "top_by_weight", "all"]},
		"include_factor_etfs": {"type": "boolean"},
		"date_format": {"type": "string", "enum": ["iso", "unix"]}
	},
	"required": ["portfolio_id"],
	"additionalProperties": false
}`

// PricesHistorical implements the prices-historical tool: daily bars for a
// portfolio's holdings (or all of them), capped and selected per policy.
type PricesHistorical struct {
	Client *dataclient.Client
	Store  store.Store
	Caps   config.CapsConfig
	Clock  func() time.Time
}

func (t *PricesHistorical) Name() string { return "prices-historical" }
func (t *PricesHistorical) Description() string {
	return "Fetch daily historical price bars for a portfolio's holdings, selected and capped by policy."
}
func (t *PricesHistorical) Schema() json.RawMessage { return json.RawMessage(pricesHistoricalSchema) }

type pricesHistoricalInput struct {
	PortfolioID       string `json:"portfolio_id"`
	LookbackDays      *int   `json:"lookback_days,omitempty"`
	MaxSymbols        *int   `json:"max_symbols,omitempty"`
	SelectionMethod   string `json:"selection_method,omitempty"`
	IncludeFactorETFs *bool  `json:"include_factor_etfs,omitempty"`
	DateFormat        string `json:"date_format,omitempty"`
}

func (t *PricesHistorical) clock() time.Time {
	if t.Clock != nil {
		return t.Clock()
	}
	return time.Now()
}

func (t *PricesHistorical) Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	var in pricesHistoricalInput
	if err := json.Unmarshal(params, &in); err != nil {
		return nil, agenterr.NewToolError(t.Name(), agenterr.ClassInput, err)
	}

	requestedLookback := t.Caps.DefaultLookbackDays
	if in.LookbackDays != nil {
		requestedLookback = *in.LookbackDays
	}
	lookback := requestedLookback
	lookbackTruncated := false
	if t.Caps.MaxLookbackDays > 0 && lookback > t.Caps.MaxLookbackDays {
		lookback = t.Caps.MaxLookbackDays
		lookbackTruncated = true
	}

	requestedMaxSymbols := t.Caps.MaxHistoricalSymbols
	if in.MaxSymbols != nil {
		requestedMaxSymbols = *in.MaxSymbols
	}
	maxSymbols := requestedMaxSymbols
	if t.Caps.MaxHistoricalSymbols > 0 && maxSymbols > t.Caps.MaxHistoricalSymbols {
		maxSymbols = t.Caps.MaxHistoricalSymbols
	}

	selectionMethod := in.SelectionMethod
	if selectionMethod == "" {
		selectionMethod = "top_by_value"
	}
	includeFactorETFs := false
	if in.IncludeFactorETFs != nil {
		includeFactorETFs = *in.IncludeFactorETFs
	}
	dateFormat := in.DateFormat
	if dateFormat == "" {
		dateFormat = "iso"
	}

	applied := struct {
		PortfolioID       string `json:"portfolio_id"`
		LookbackDays      int    `json:"lookback_days"`
		MaxSymbols        int    `json:"max_symbols"`
		SelectionMethod   string `json:"selection_method"`
		IncludeFactorETFs bool   `json:"include_factor_etfs"`
		DateFormat        string `json:"date_format"`
	}{in.PortfolioID, lookback, maxSymbols, selectionMethod, includeFactorETFs, dateFormat}

	userID, _ := auth.UserIDFromContext(ctx)
	cacheKey := store.Key(userID, t.Name(), canonicalArgs(applied), "")
	cache := t.Store.Cache(reqcontext.ConversationID(ctx))

	env, err := cache.GetOrLoad(cacheKey, func() (models.Envelope, error) {
		return t.load(ctx, in, lookback, maxSymbols, selectionMethod, includeFactorETFs, dateFormat, lookbackTruncated, requestedLookback, applied)
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

func (t *PricesHistorical) load(ctx context.Context, in pricesHistoricalInput, lookback, maxSymbols int, selectionMethod string, includeFactorETFs bool, dateFormat string, lookbackTruncated bool, requestedLookback int, applied any) (models.Envelope, error) {
	bearer := reqcontext.BearerToken(ctx)

	result, err := t.Client.PricesHistorical(ctx, bearer, dataclient.PricesHistoricalParams{
		PortfolioID:       in.PortfolioID,
		LookbackDays:      lookback,
		MaxSymbols:        maxSymbols,
		SelectionMethod:   selectionMethod,
		IncludeFactorETFs: includeFactorETFs,
	})
	if err != nil {
		return models.Envelope{}, classifyUpstreamErr(t.Name(), err)
	}

	series := result.Series
	truncated := lookbackTruncated
	var suggested any
	if lookbackTruncated {
		suggested = map[string]any{"window": fmt.Sprintf("%dd", t.Caps.MaxLookbackDays)}
	}

	if !result.SupportsSelection && selectionMethod != "all" && len(series) > maxSymbols {
		ranked, rankErr := t.rankSymbols(ctx, bearer, in.PortfolioID, selectionMethod)
		if rankErr == nil {
			series = reorderBySymbolRank(series, ranked)
		}
	}
	if len(series) > maxSymbols {
		series = series[:maxSymbols]
		truncated = true
		if suggested == nil {
			suggested = map[string]any{"note": fmt.Sprintf("selected the top %d symbols by %s", maxSymbols, selectionMethod)}
		}
	}

	for i := range series {
		for j := range series[i].Bars {
			series[i].Bars[j].Date = formatBarDate(series[i].Bars[j].Date, dateFormat)
		}
	}

	asOf := normalizeTimestamp(result.AsOf)
	if asOf == "" {
		asOf = nowUTC(t.clock)
	}

	data := struct {
		AsOf   string                      `json:"as_of"`
		Series []dataclient.SymbolSeries `json:"series"`
	}{asOf, series}

	limits := map[string]any{
		"max_lookback_days":      t.Caps.MaxLookbackDays,
		"max_historical_symbols": t.Caps.MaxHistoricalSymbols,
	}
	requested := struct {
		PortfolioID       string `json:"portfolio_id"`
		LookbackDays      int    `json:"lookback_days"`
		MaxSymbols        int    `json:"max_symbols,omitempty"`
		SelectionMethod   string `json:"selection_method,omitempty"`
		IncludeFactorETFs bool   `json:"include_factor_etfs,omitempty"`
		DateFormat        string `json:"date_format,omitempty"`
	}{in.PortfolioID, requestedLookback, 0, in.SelectionMethod, includeFactorETFs, in.DateFormat}
	if in.MaxSymbols != nil {
		requested.MaxSymbols = *in.MaxSymbols
	}

	return buildEnvelope(asOf, requested, applied, limits, len(series), truncated, suggested, data), nil
}

// rankSymbols returns portfolio symbols ordered best-first by the requested
// selection method, fetched from the portfolio's current holdings.
func (t *PricesHistorical) rankSymbols(ctx context.Context, bearer, portfolioID, selectionMethod string) ([]string, error) {
	result, err := t.Client.PortfolioComplete(ctx, bearer, dataclient.PortfolioCompleteParams{
		PortfolioID:      portfolioID,
		IncludePositions: true,
	})
	if err != nil {
		return nil, err
	}

	holdings := append([]dataclient.Holding(nil), result.Positions...)
	sort.SliceStable(holdings, func(i, j int) bool {
		if selectionMethod == "top_by_weight" {
			return holdings[i].Weight > holdings[j].Weight
		}
		return holdings[i].Value > holdings[j].Value
	})

	symbols := make([]string, len(holdings))
	for i, h := range holdings {
		symbols[i] = h.Symbol
	}
	return symbols, nil
}

func reorderBySymbolRank(series []dataclient.SymbolSeries, ranked []string) []dataclient.SymbolSeries {
	bySymbol := make(map[string]dataclient.SymbolSeries, len(series))
	for _, s := range series {
		bySymbol[s.Symbol] = s
	}

	out := make([]dataclient.SymbolSeries, 0, len(series))
	used := make(map[string]bool, len(series))
	for _, sym := range ranked {
		if s, ok := bySymbol[sym]; ok {
			out = append(out, s)
			used[sym] = true
		}
	}
	for _, s := range series {
		if !used[s.Symbol] {
			out = append(out, s)
		}
	}
	return out
}

func formatBarDate(raw, format string) string {
	iso := normalizeTimestamp(raw)
	if format != "unix" {
		return iso
	}
	t, err := time.Parse("2006-01-02T15:04:05Z", iso)
	if err != nil {
		return iso
	}
	return fmt.Sprintf("%d", t.Unix())
}
