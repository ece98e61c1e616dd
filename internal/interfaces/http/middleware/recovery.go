package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// Recovery turns a handler panic into a 500 response and logs the stack.
func Recovery(logger logging.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.FromContext(c.Request.Context(), logger).Error("Panic while serving request",
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.String("panic", fmt.Sprint(recovered)),
			logging.String("stack", string(debug.Stack())))

		code := errors.ErrCodeInternal
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"code":    code.String(),
			"message": errors.DefaultMessageForCode(code),
		})
	})
}

//Personal.AI order the ending
