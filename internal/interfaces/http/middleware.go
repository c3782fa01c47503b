package http

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/approval-ledger/internal/domain/entity"
	"github.com/garyjia/approval-ledger/internal/infrastructure/host"
)

// callerMiddleware moves the gateway-asserted caller account into the request
// context. An absent header is left for the engine to reject on writes; a
// malformed one fails the request immediately.
func callerMiddleware(header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(header)
		if raw == "" {
			c.Next()
			return
		}

		account, err := entity.ParseAccountHash(raw)
		if err != nil {
			abortWithError(c, fmt.Errorf("header %s: %w", header, err))
			return
		}

		c.Request = c.Request.WithContext(host.WithCaller(c.Request.Context(), account))
		c.Next()
	}
}
