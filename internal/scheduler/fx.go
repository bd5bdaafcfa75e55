package scheduler

import (
	"context"

	"github.com/paynehq/payne/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("scheduler",
	fx.Provide(New),
	fx.Invoke(run),
)

func run(lc fx.Lifecycle, cfg config.Config, r *Reconciler, log *zap.Logger) {
	if !cfg.Chain.ReconcileEnabled {
		log.Named("scheduler").Info("payment reconciler disabled")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				r.RunForever(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
