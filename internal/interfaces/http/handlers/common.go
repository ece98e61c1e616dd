// Package handlers implements the patentdoc REST endpoints on gin.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// writeError aborts c with err mapped to its HTTP status.  Server errors are
// masked.
func writeError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)

	resp := ErrorResponse{Code: code.String(), Message: err.Error()}
	var ae *errors.AppError
	if errors.As(err, &ae) {
		resp.Message = ae.Message
		resp.Detail = ae.Detail
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		resp = ErrorResponse{Code: code.String(), Message: errors.DefaultMessageForCode(code)}
	}
	c.AbortWithStatusJSON(status, resp)
}

// badRequest aborts c with a validation error for param.
func badRequest(c *gin.Context, param, msg string) {
	writeError(c, errors.New(errors.ErrCodeValidation, msg).WithDetailf("param=%s", param))
}

// parsePagination extracts offset and limit from the query, with limit
// capped at maxLimit.
func parsePagination(c *gin.Context, defaultLimit, maxLimit int) (offset, limit int, ok bool) {
	limit = defaultLimit
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(c, "offset", "offset must be a non-negative integer")
			return 0, 0, false
		}
		offset = n
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			badRequest(c, "limit", "limit must be a positive integer")
			return 0, 0, false
		}
		limit = n
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return offset, limit, true
}

//Personal.AI order the ending
