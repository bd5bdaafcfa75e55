package providers

import (
	"github.com/paynehq/payne/internal/providers/pdf"
	"github.com/paynehq/payne/internal/providers/qrcode"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	fx.Provide(pdf.NewProvider),
	fx.Provide(qrcode.NewProvider),
)
