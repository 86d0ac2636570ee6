package dataclient

import (
	"context"
	"fmt"
)

// The six typed operations mirror the tool handler set and the data
// backend's GET /portfolio/*, /positions/*, /prices/*, /factors/* contract.
// The backend's exact wire schema is out of scope for this module (§1); the
// DTOs below describe only the fields the tool handlers (C3) need to apply
// caps and normalize timestamps.

// Holding is one position row as returned by the backend.
type Holding struct {
	PositionID string  `json:"position_id"`
	Symbol     string  `json:"symbol"`
	Quantity   float64 `json:"quantity"`
	Value      float64 `json:"value"`
	Weight     float64 `json:"weight"`
	Closed     bool    `json:"closed"`
}

// PortfolioCompleteParams are the request parameters for portfolio-complete.
type PortfolioCompleteParams struct {
	PortfolioID      string
	IncludePositions bool
	IncludeCash      bool
	AsOfDate         string // empty means "today"
}

// PortfolioCompleteResult is the backend's response, before cap enforcement
// or timestamp normalization.
type PortfolioCompleteResult struct {
	PortfolioID string    `json:"portfolio_id"`
	AsOf        string    `json:"as_of"` // backend-native timestamp format
	Positions   []Holding `json:"positions,omitempty"`
	Cash        float64   `json:"cash,omitempty"`
}

// PortfolioComplete calls GET /portfolio/{id}.
func (c *Client) PortfolioComplete(ctx context.Context, bearerToken string, p PortfolioCompleteParams) (*PortfolioCompleteResult, error) {
	q := map[string]string{
		"include_positions": boolStr(p.IncludePositions),
		"include_cash":      boolStr(p.IncludeCash),
	}
	if p.AsOfDate != "" {
		q["as_of_date"] = p.AsOfDate
	}
	var out PortfolioCompleteResult
	if err := c.Get(ctx, bearerToken, fmt.Sprintf("/portfolio/%s", p.PortfolioID), q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PortfolioDataQualityParams are the request parameters for
// portfolio-data-quality.
type PortfolioDataQualityParams struct {
	PortfolioID      string
	CheckFactors     bool
	CheckCorrelations bool
}

// DataQualityIssue is one flagged quality concern.
type DataQualityIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// PortfolioDataQualityResult is the backend's response.
type PortfolioDataQualityResult struct {
	PortfolioID string             `json:"portfolio_id"`
	AsOf        string             `json:"as_of"`
	Issues      []DataQualityIssue `json:"issues,omitempty"`
}

// PortfolioDataQuality calls GET /portfolio/{id}/data-quality.
func (c *Client) PortfolioDataQuality(ctx context.Context, bearerToken string, p PortfolioDataQualityParams) (*PortfolioDataQualityResult, error) {
	q := map[string]string{
		"check_factors":      boolStr(p.CheckFactors),
		"check_correlations": boolStr(p.CheckCorrelations),
	}
	var out PortfolioDataQualityResult
	if err := c.Get(ctx, bearerToken, fmt.Sprintf("/portfolio/%s/data-quality", p.PortfolioID), q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PositionsDetailsParams are the request parameters for positions-details.
// Exactly one of PortfolioID or PositionIDs must be set by the caller
// (enforced by the handler, not here).
type PositionsDetailsParams struct {
	PortfolioID   string
	PositionIDs   []string
	IncludeClosed bool
}

// PositionsDetailsResult is the backend's response.
type PositionsDetailsResult struct {
	AsOf      string    `json:"as_of"`
	Positions []Holding `json:"positions"`
}

// PositionsDetails calls GET /positions/details.
func (c *Client) PositionsDetails(ctx context.Context, bearerToken string, p PositionsDetailsParams) (*PositionsDetailsResult, error) {
	q := map[string]string{"include_closed": boolStr(p.IncludeClosed)}
	if p.PortfolioID != "" {
		q["portfolio_id"] = p.PortfolioID
	}
	if len(p.PositionIDs) > 0 {
		q["position_ids"] = joinCSV(p.PositionIDs)
	}
	var out PositionsDetailsResult
	if err := c.Get(ctx, bearerToken, "/positions/details", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PricesHistoricalParams are the request parameters for prices-historical.
type PricesHistoricalParams struct {
	PortfolioID       string
	LookbackDays      int
	MaxSymbols        int
	SelectionMethod   string
	IncludeFactorETFs bool
}

// PriceBar is one OHLC (or close-only) bar.
type PriceBar struct {
	Date  string  `json:"date"` // backend-native timestamp format
	Close float64 `json:"close"`
}

// SymbolSeries is the historical series for one symbol.
type SymbolSeries struct {
	Symbol string     `json:"symbol"`
	Bars   []PriceBar `json:"bars"`
}

// PricesHistoricalResult is the backend's response. SupportsSelection
// indicates whether the backend already applied MaxSymbols/SelectionMethod
// server-side; if false the handler performs post-selection itself.
type PricesHistoricalResult struct {
	AsOf              string         `json:"as_of"`
	Series            []SymbolSeries `json:"series"`
	SupportsSelection bool           `json:"-"`
}

// PricesHistorical calls GET /prices/historical.
func (c *Client) PricesHistorical(ctx context.Context, bearerToken string, p PricesHistoricalParams) (*PricesHistoricalResult, error) {
	q := map[string]string{
		"portfolio_id":        p.PortfolioID,
		"lookback_days":       fmt.Sprintf("%d", p.LookbackDays),
		"max_symbols":         fmt.Sprintf("%d", p.MaxSymbols),
		"selection_method":    p.SelectionMethod,
		"include_factor_etfs": boolStr(p.IncludeFactorETFs),
	}
	var out PricesHistoricalResult
	if err := c.Get(ctx, bearerToken, "/prices/historical", q, &out); err != nil {
		return nil, err
	}
	// The backend contract this module consumes does not support
	// server-side symbol selection; the handler always post-selects.
	out.SupportsSelection = false
	return &out, nil
}

// PricesQuotesParams are the request parameters for prices-quotes.
type PricesQuotesParams struct {
	Symbols        []string
	IncludeOptions bool
}

// Quote is a single real-time (or last-known) quote.
type Quote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	AsOf   string  `json:"as_of"`
}

// PricesQuotesResult is the backend's response.
type PricesQuotesResult struct {
	AsOf   string  `json:"as_of"`
	Quotes []Quote `json:"quotes"`
}

// PricesQuotes calls GET /prices/quotes.
func (c *Client) PricesQuotes(ctx context.Context, bearerToken string, p PricesQuotesParams) (*PricesQuotesResult, error) {
	q := map[string]string{
		"symbols":         joinCSV(p.Symbols),
		"include_options": boolStr(p.IncludeOptions),
	}
	var out PricesQuotesResult
	if err := c.Get(ctx, bearerToken, "/prices/quotes", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FactorETFPricesParams are the request parameters for factor-etf-prices.
type FactorETFPricesParams struct {
	LookbackDays int
	Symbols      []string // already-resolved canonical ETF symbols
}

// FactorETFPricesResult is the backend's response.
type FactorETFPricesResult struct {
	AsOf   string         `json:"as_of"`
	Series []SymbolSeries `json:"series"`
}

// FactorETFPrices calls GET /factors/etf-prices.
func (c *Client) FactorETFPrices(ctx context.Context, bearerToken string, p FactorETFPricesParams) (*FactorETFPricesResult, error) {
	q := map[string]string{
		"lookback_days": fmt.Sprintf("%d", p.LookbackDays),
		"symbols":       joinCSV(p.Symbols),
	}
	var out FactorETFPricesResult
	if err := c.Get(ctx, bearerToken, "/factors/etf-prices", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func joinCSV(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}
