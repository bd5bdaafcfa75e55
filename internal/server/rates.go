package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetRates serves the current exchange rate snapshot.
func (s *Server) GetRates(c *gin.Context) {
	rates, err := s.currencySvc.Rates(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rates)
}

// ConvertRates converts a USD amount into a display currency, plus the
// equivalent USDC amount at the live token price.
func (s *Server) ConvertRates(c *gin.Context) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(c.Query("amount")), 64)
	if err != nil || amount < 0 {
		AbortWithError(c, newValidationError("amount", "invalid_amount", "amount must be a non-negative number"))
		return
	}

	currency := strings.ToUpper(strings.TrimSpace(c.Query("currency")))
	if currency == "" {
		currency = "USD"
	}

	converted, err := s.currencySvc.ConvertFromUSD(c.Request.Context(), amount, currency)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := gin.H{
		"amount":    amount,
		"currency":  currency,
		"converted": converted,
	}
	if usdc, err := s.currencySvc.USDToUSDC(c.Request.Context(), amount); err == nil {
		resp["usdc"] = usdc
	}

	c.JSON(http.StatusOK, resp)
}

// GetGeo resolves the visitor's location and display currency.
func (s *Server) GetGeo(c *gin.Context) {
	c.JSON(http.StatusOK, s.geoSvc.Resolve(c.Request.Context(), c.ClientIP()))
}
