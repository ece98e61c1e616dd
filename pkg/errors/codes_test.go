package errors

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode_String(t *testing.T) {
	assert.Equal(t, "COMMON_001", ErrCodeInternal.String())
	assert.Equal(t, "DOC_001", ErrCodeDocumentLoad.String())
}

func TestHTTPStatusForCode(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrCodeInternal, 500},
		{ErrCodeBadRequest, 400},
		{ErrCodeNotFound, 404},
		{ErrCodeValidation, 422},
		{ErrCodeUnsupportedFormat, 400},
		{ErrCodeDocumentLoad, 422},
		{ErrCodeMissingIdentifier, 422},
		{ErrCodeClassificationSetup, 400},
		{ErrCodeRateLimited, 429},
		{ErrCodeDocumentTooLarge, 413},
		{ErrorCode("NOPE_999"), 500},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, HTTPStatusForCode(tt.code), tt.code)
	}
}

func TestDefaultMessageForCode(t *testing.T) {
	assert.Equal(t, "internal error", DefaultMessageForCode(ErrCodeInternal))
	assert.Equal(t, "unsupported document format", DefaultMessageForCode(ErrCodeUnsupportedFormat))
	assert.Equal(t, "unknown error", DefaultMessageForCode(ErrorCode("NOPE_999")))
}

func TestIsClientServerError(t *testing.T) {
	assert.True(t, IsClientError(ErrCodeUnsupportedFormat))
	assert.False(t, IsClientError(ErrCodeInternal))
	assert.True(t, IsServerError(ErrCodeStorageError))
	assert.False(t, IsServerError(ErrCodeBadRequest))
}

func TestIsFatalForDocument(t *testing.T) {
	assert.True(t, IsFatalForDocument(ErrCodeDocumentLoad))
	assert.True(t, IsFatalForDocument(ErrCodeUnsupportedFormat))
	assert.True(t, IsFatalForDocument(ErrCodeMissingIdentifier))
	assert.False(t, IsFatalForDocument(ErrCodeInvalidDate))
	assert.False(t, IsFatalForDocument(ErrCodeInvalidClassification))
}

func TestModuleForCode(t *testing.T) {
	assert.Equal(t, "COMMON", ModuleForCode(ErrCodeInternal))
	assert.Equal(t, "DOC", ModuleForCode(ErrCodeDocumentLoad))
	assert.Equal(t, "CRP", ModuleForCode(ErrCodeCorpusSinkFailed))
	assert.Equal(t, "INF", ModuleForCode(ErrCodeSearchError))
	assert.Equal(t, "UNKNOWN", ModuleForCode(ErrorCode("")))
	assert.Equal(t, "UNKNOWN", ModuleForCode(CodeUnknown))
}

func TestErrorCodeFormat_Convention(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z]+_\d{3}$`)
	for code := range ErrorCodeHTTPStatus {
		assert.Regexp(t, pattern, string(code))
		_, ok := ErrorCodeMessage[code]
		assert.True(t, ok, "missing default message for %s", code)
	}
}

//Personal.AI order the ending
