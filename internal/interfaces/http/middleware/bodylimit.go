package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// BodyLimit rejects bodies larger than n bytes.  A declared Content-Length
// over the limit fails fast with 413; otherwise reads past n fail.
func BodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > n {
			code := errors.ErrCodeDocumentTooLarge
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"code":    code.String(),
				"message": errors.DefaultMessageForCode(code),
			})
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

//Personal.AI order the ending
