package server

import (
	"github.com/gin-gonic/gin"
	"github.com/paynehq/payne/internal/merchantctx"
)

const contextMerchantIDKey = "merchant_id"

// AuthRequired gates merchant routes on a valid session cookie and threads
// the merchant ID through the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		session, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := merchantctx.WithMerchantID(c.Request.Context(), session.MerchantID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextMerchantIDKey, session.MerchantID.String())
		c.Next()
	}
}
