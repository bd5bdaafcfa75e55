package auth

import (
	"github.com/paynehq/payne/internal/auth/service"
	"github.com/paynehq/payne/internal/auth/session"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(service.New),
	fx.Provide(session.NewManager),
)
