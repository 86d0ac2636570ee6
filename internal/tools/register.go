package tools

import (
	"time"

	"github.com/sigmasight/agentcore/internal/config"
	"github.com/sigmasight/agentcore/internal/dataclient"
	"github.com/sigmasight/agentcore/internal/registry"
	"github.com/sigmasight/agentcore/internal/store"
)

// Deps bundles the shared dependencies every tool handler needs.
type Deps struct {
	Client          *dataclient.Client
	Store           store.Store
	Caps            config.CapsConfig
	FactorAliases   *FactorAliases
	FactorLookback  int
	Clock           func() time.Time
}

// RegisterAll builds the six portfolio data tools and registers them into
// reg. It panics on a schema compile failure, since a bad descriptor here is
// a startup-time defect (mirrors registry.MustRegister's contract).
func RegisterAll(reg *registry.Registry, deps Deps) {
	reg.MustRegister(&PortfolioComplete{Client: deps.Client, Store: deps.Store, Caps: deps.Caps, Clock: deps.Clock})
	reg.MustRegister(&PortfolioDataQuality{Client: deps.Client, Store: deps.Store, Clock: deps.Clock})
	reg.MustRegister(&PositionsDetails{Client: deps.Client, Store: deps.Store, Caps: deps.Caps, Clock: deps.Clock})
	reg.MustRegister(&PricesHistorical{Client: deps.Client, Store: deps.Store, Caps: deps.Caps, Clock: deps.Clock})
	reg.MustRegister(&PricesQuotes{Client: deps.Client, Store: deps.Store, Caps: deps.Caps, Clock: deps.Clock})
	reg.MustRegister(&FactorETFPrices{
		Client:              deps.Client,
		Store:               deps.Store,
		Aliases:             deps.FactorAliases,
		Clock:               deps.Clock,
		DefaultLookbackDays: deps.FactorLookback,
	})
}
