package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/paynehq/payne/internal/analytics"
	analyticssvc "github.com/paynehq/payne/internal/analytics/service"
	"github.com/paynehq/payne/internal/auth"
	authdomain "github.com/paynehq/payne/internal/auth/domain"
	"github.com/paynehq/payne/internal/auth/session"
	"github.com/paynehq/payne/internal/chain"
	"github.com/paynehq/payne/internal/clock"
	"github.com/paynehq/payne/internal/config"
	"github.com/paynehq/payne/internal/currency"
	currencysvc "github.com/paynehq/payne/internal/currency/service"
	"github.com/paynehq/payne/internal/geo"
	"github.com/paynehq/payne/internal/invoice"
	invoicedomain "github.com/paynehq/payne/internal/invoice/domain"
	"github.com/paynehq/payne/internal/observability"
	obslogger "github.com/paynehq/payne/internal/observability/logger"
	obsmetrics "github.com/paynehq/payne/internal/observability/metrics"
	obstracing "github.com/paynehq/payne/internal/observability/tracing"
	"github.com/paynehq/payne/internal/payment"
	paymentsvc "github.com/paynehq/payne/internal/payment/service"
	"github.com/paynehq/payne/internal/providers"
	"github.com/paynehq/payne/internal/providers/pdf"
	"github.com/paynehq/payne/internal/providers/qrcode"
	"github.com/paynehq/payne/internal/ratelimit"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Public payment-page limits, per client IP.
const (
	payPageRate  = 0.5 // 30/min sustained
	payPageBurst = 30
	confirmRate  = 5.0 / 60
	confirmBurst = 5
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	auth.Module,
	invoice.Module,
	analytics.Module,
	currency.Module,
	geo.Module,
	chain.Module,
	payment.Module,
	ratelimit.Module,
	providers.Module,
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug: obsCfg.Debug(),
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}
	log = log.Named("http.server")

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	authsvc      authdomain.Service
	sessions     *session.Manager
	genID        *snowflake.Node
	invoiceSvc   invoicedomain.Service
	analyticsSvc analyticssvc.Service
	currencySvc  currencysvc.Service
	geoSvc       geo.Service
	paymentSvc   paymentsvc.Service
	chainClient  chain.Client
	pdfProvider  *pdf.Provider
	qrProvider   *qrcode.Provider
	bucket       *ratelimit.TokenBucket
	obsMetrics   *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	Authsvc      authdomain.Service
	Sessions     *session.Manager
	GenID        *snowflake.Node
	InvoiceSvc   invoicedomain.Service
	AnalyticsSvc analyticssvc.Service
	CurrencySvc  currencysvc.Service
	GeoSvc       geo.Service
	PaymentSvc   paymentsvc.Service
	ChainClient  chain.Client
	PDFProvider  *pdf.Provider
	QRProvider   *qrcode.Provider
	Bucket       *ratelimit.TokenBucket
	ObsMetrics   *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		log:          p.Log.Named("http.server"),
		clock:        p.Clock,
		authsvc:      p.Authsvc,
		sessions:     p.Sessions,
		genID:        p.GenID,
		invoiceSvc:   p.InvoiceSvc,
		analyticsSvc: p.AnalyticsSvc,
		currencySvc:  p.CurrencySvc,
		geoSvc:       p.GeoSvc,
		paymentSvc:   p.PaymentSvc,
		chainClient:  p.ChainClient,
		pdfProvider:  p.PDFProvider,
		qrProvider:   p.QRProvider,
		bucket:       p.Bucket,
		obsMetrics:   p.ObsMetrics,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerPublicRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/api/v1/auth")

	auth.POST("/signup", s.Signup)
	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.AuthRequired(), s.Me)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1", s.AuthRequired())

	// -------- Invoices --------
	api.POST("/invoices", s.CreateInvoice)
	api.GET("/invoices", s.ListInvoices)
	api.GET("/invoices/:invoiceNumber", s.GetInvoice)
	api.GET("/invoices/:invoiceNumber/receipt", s.InvoiceReceipt)

	// -------- Dashboard --------
	api.GET("/analytics/summary", s.AnalyticsSummary)
	api.GET("/wallet/balance", s.WalletBalance)
}

func (s *Server) registerPublicRoutes() {
	public := s.engine.Group("/api/v1")

	payLimit := ratelimit.Middleware(s.bucket, s.log, "public_pay", payPageRate, payPageBurst)
	confirmLimit := ratelimit.Middleware(s.bucket, s.log, "public_confirm", confirmRate, confirmBurst)

	public.GET("/pay/:invoiceNumber", payLimit, s.PublicInvoice)
	public.GET("/pay/:invoiceNumber/qr", payLimit, s.PaymentQR)
	public.POST("/pay/:invoiceNumber", confirmLimit, s.PayInvoice)
	public.POST("/pay/:invoiceNumber/confirm", confirmLimit, s.ConfirmPayment)

	public.GET("/rates", payLimit, s.GetRates)
	public.GET("/rates/convert", payLimit, s.ConvertRates)
	public.GET("/geo", payLimit, s.GetGeo)
}
