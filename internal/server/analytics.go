package server

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	analyticssvc "github.com/paynehq/payne/internal/analytics/service"
	"github.com/paynehq/payne/internal/chain"
)

// AnalyticsSummary serves the dashboard revenue summary. With no range
// parameters the trailing-30-day preset applies and includes the
// previous-period comparison.
func (s *Server) AnalyticsSummary(c *gin.Context) {
	summary, err := s.analyticsSvc.Summarize(c.Request.Context(), analyticssvc.SummarizeRequest{
		StartDate: c.Query("startDate"),
		EndDate:   c.Query("endDate"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// WalletBalance reports the merchant's on-chain token balance.
func (s *Server) WalletBalance(c *gin.Context) {
	merchant, err := s.authsvc.CurrentMerchant(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !common.IsHexAddress(merchant.WalletAddress) {
		AbortWithError(c, newValidationError("wallet_address", "invalid_wallet_address", "invalid value"))
		return
	}

	balance, err := s.chainClient.BalanceOf(c.Request.Context(), common.HexToAddress(merchant.WalletAddress))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	micros, ok := chain.MicrosFromBaseUnits(balance, s.cfg.Chain.TokenDecimals)
	if !ok {
		AbortWithError(c, ErrInternal)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address":       merchant.WalletAddress,
		"balance":       float64(micros) / 1e6,
		"balanceMicros": micros,
	})
}
