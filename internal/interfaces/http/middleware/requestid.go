package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
)

// HeaderRequestID carries the request correlation ID.
const HeaderRequestID = "X-Request-ID"

const requestIDKey = "request_id"

// RequestID propagates the X-Request-ID header, generating one when absent.
// The ID is echoed in the response and attached to a request-scoped logger
// stored in the request context.
func RequestID(logger logging.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)

		field := logging.String(logging.KeyRequestID, id)
		ctx := logging.ContextWithFields(c.Request.Context(), field)
		ctx = logging.ContextWithLogger(ctx, logger.With(field))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetRequestID returns the ID assigned by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

//Personal.AI order the ending
