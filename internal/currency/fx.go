package currency

import (
	"github.com/paynehq/payne/internal/currency/client"
	"github.com/paynehq/payne/internal/currency/service"
	"go.uber.org/fx"
)

var Module = fx.Module("currency.service",
	fx.Provide(
		fx.Annotate(client.NewExchangeRateClient, fx.As(new(client.RateSource))),
		fx.Annotate(client.NewUSDCPriceClient, fx.As(new(client.PriceSource))),
		service.NewService,
	),
)
