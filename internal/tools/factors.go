package tools

import "strings"

// FactorAliases resolves factor-name aliases (market, value, growth,
// momentum, quality, size, sly, low_volatility) to canonical ETF symbols.
// size and sly are deliberately distinct input aliases resolving to the same
// canonical symbol (§9 open question resolution).
type FactorAliases struct {
	aliases map[string]string
}

// NewFactorAliases builds a resolver from the process configuration's
// mapping, optionally overridden by a backend-sourced mapping fetched once
// at startup (backend map wins on key collision).
func NewFactorAliases(configured, backend map[string]string) *FactorAliases {
	merged := make(map[string]string, len(configured)+len(backend))
	for k, v := range configured {
		merged[strings.ToLower(k)] = v
	}
	for k, v := range backend {
		merged[strings.ToLower(k)] = v
	}
	return &FactorAliases{aliases: merged}
}

// Resolve returns the canonical ETF symbol for name. If name is not a known
// alias, it is returned unchanged under the assumption the caller already
// passed a literal ticker symbol.
func (f *FactorAliases) Resolve(name string) string {
	if canonical, ok := f.aliases[strings.ToLower(name)]; ok {
		return canonical
	}
	return name
}

// ResolveAll maps Resolve over names, preserving order.
func (f *FactorAliases) ResolveAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = f.Resolve(n)
	}
	return out
}

// All returns the canonical symbols for every known alias, used by
// factor-etf-prices when no explicit factor list is requested ("all").
func (f *FactorAliases) All() []string {
	seen := make(map[string]bool, len(f.aliases))
	out := make([]string, 0, len(f.aliases))
	for _, canonical := range f.aliases {
		if !seen[canonical] {
			seen[canonical] = true
			out = append(out, canonical)
		}
	}
	return out
}
