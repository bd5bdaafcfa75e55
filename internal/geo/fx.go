package geo

import "go.uber.org/fx"

var Module = fx.Module("geo.service",
	fx.Provide(
		fx.Annotate(NewIPAPIClient, fx.As(new(Lookuper))),
		NewService,
	),
)
