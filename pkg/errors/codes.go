package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeNotImplemented     ErrorCode = "COMMON_016"
	ErrCodeConfiguration      ErrorCode = "COMMON_017"
	ErrCodeRateLimited        ErrorCode = "COMMON_018"

	CodeOK      ErrorCode = "OK"
	CodeUnknown ErrorCode = "UNKNOWN"
)

// Document Module Error Codes
//
// Structural failures (load, format, identity) abort the parse of a single
// document.  Field-level codes never escape a parser: they are converted into
// logged warnings and an absent value.
const (
	ErrCodeDocumentLoad          ErrorCode = "DOC_001"
	ErrCodeUnsupportedFormat     ErrorCode = "DOC_002"
	ErrCodeMissingIdentifier     ErrorCode = "DOC_003"
	ErrCodeInvalidDate           ErrorCode = "DOC_004"
	ErrCodeInvalidClassification ErrorCode = "DOC_005"
	ErrCodeFieldParse            ErrorCode = "DOC_006"
	ErrCodeClassificationSetup   ErrorCode = "DOC_007"
	ErrCodeInvalidClaim          ErrorCode = "DOC_008"
	ErrCodeInvalidPatentType     ErrorCode = "DOC_009"
	ErrCodeDocumentTooLarge      ErrorCode = "DOC_010"
)

// Corpus Module Error Codes
const (
	ErrCodeCorpusSourceFailed ErrorCode = "CRP_001"
	ErrCodeCorpusSinkFailed   ErrorCode = "CRP_002"
	ErrCodeArchiveInvalid     ErrorCode = "CRP_003"
)

// Infrastructure Error Codes
const (
	ErrCodeStorageError      ErrorCode = "INF_001"
	ErrCodeMessageQueueError ErrorCode = "INF_002"
	ErrCodeSearchError       ErrorCode = "INF_003"
	ErrCodeGraphError        ErrorCode = "INF_004"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeNotImplemented:     http.StatusNotImplemented,
	ErrCodeConfiguration:      http.StatusInternalServerError,
	ErrCodeRateLimited:        http.StatusTooManyRequests,

	ErrCodeDocumentLoad:          http.StatusUnprocessableEntity,
	ErrCodeUnsupportedFormat:     http.StatusBadRequest,
	ErrCodeMissingIdentifier:     http.StatusUnprocessableEntity,
	ErrCodeInvalidDate:           http.StatusUnprocessableEntity,
	ErrCodeInvalidClassification: http.StatusBadRequest,
	ErrCodeFieldParse:            http.StatusUnprocessableEntity,
	ErrCodeClassificationSetup:   http.StatusBadRequest,
	ErrCodeInvalidClaim:          http.StatusUnprocessableEntity,
	ErrCodeInvalidPatentType:     http.StatusUnprocessableEntity,
	ErrCodeDocumentTooLarge:      http.StatusRequestEntityTooLarge,

	ErrCodeCorpusSourceFailed: http.StatusBadGateway,
	ErrCodeCorpusSinkFailed:   http.StatusBadGateway,
	ErrCodeArchiveInvalid:     http.StatusUnprocessableEntity,

	ErrCodeStorageError:      http.StatusInternalServerError,
	ErrCodeMessageQueueError: http.StatusInternalServerError,
	ErrCodeSearchError:       http.StatusInternalServerError,
	ErrCodeGraphError:        http.StatusInternalServerError,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeNotImplemented:     "not implemented",
	ErrCodeConfiguration:      "configuration error",
	ErrCodeRateLimited:        "too many requests",

	ErrCodeDocumentLoad:          "failed to load document",
	ErrCodeUnsupportedFormat:     "unsupported document format",
	ErrCodeMissingIdentifier:     "document has no primary identifier",
	ErrCodeInvalidDate:           "invalid document date",
	ErrCodeInvalidClassification: "invalid classification code",
	ErrCodeFieldParse:            "failed to parse document field",
	ErrCodeClassificationSetup:   "failed to set up classification matcher",
	ErrCodeInvalidClaim:          "invalid claim",
	ErrCodeInvalidPatentType:     "invalid patent type",
	ErrCodeDocumentTooLarge:      "document exceeds size limit",

	ErrCodeCorpusSourceFailed: "corpus source failed",
	ErrCodeCorpusSinkFailed:   "corpus sink failed",
	ErrCodeArchiveInvalid:     "invalid bulk archive",

	ErrCodeStorageError:      "object storage error",
	ErrCodeMessageQueueError: "message queue error",
	ErrCodeSearchError:       "search engine error",
	ErrCodeGraphError:        "graph database error",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// IsFatalForDocument reports whether an error code aborts the parse of a
// single document.  Field-level codes are recoverable.
func IsFatalForDocument(code ErrorCode) bool {
	switch code {
	case ErrCodeDocumentLoad, ErrCodeUnsupportedFormat, ErrCodeMissingIdentifier, ErrCodeDocumentTooLarge:
		return true
	default:
		return false
	}
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
