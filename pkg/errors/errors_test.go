// Package errors_test provides unit tests for the AppError type, factory
// functions, and error-chain helpers defined in pkg/errors/errors.go.
package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// TestNew
// ─────────────────────────────────────────────────────────────────────────────

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"load failure", errors.ErrCodeDocumentLoad, "failed to load XML"},
		{"unsupported format", errors.ErrCodeUnsupportedFormat, "unknown format tag"},
		{"missing id", errors.ErrCodeMissingIdentifier, "publication id missing"},
		{"setup", errors.ErrCodeClassificationSetup, "nil classification"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)

			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
			assert.NotEmpty(t, ae.Stack)
		})
	}
}

func TestNewf_FormatsMessage(t *testing.T) {
	t.Parallel()

	ae := errors.Newf(errors.ErrCodeUnsupportedFormat, "format %q is not supported", "xyz")
	assert.Equal(t, `format "xyz" is not supported`, ae.Message)
}

// ─────────────────────────────────────────────────────────────────────────────
// TestWrap
// ─────────────────────────────────────────────────────────────────────────────

func TestWrap_NilErrReturnsNil(t *testing.T) {
	t.Parallel()

	assert.Nil(t, errors.Wrap(nil, errors.ErrCodeInternal, "should not matter"))
}

func TestWrap_CauseChainIsPreserved(t *testing.T) {
	t.Parallel()

	root := stderrors.New("XML syntax error on line 3")
	wrapped := errors.Wrap(root, errors.ErrCodeDocumentLoad, "failed to load XML")

	require.NotNil(t, wrapped)
	assert.Equal(t, errors.ErrCodeDocumentLoad, wrapped.Code)
	assert.Equal(t, root, stderrors.Unwrap(wrapped))
	assert.True(t, stderrors.Is(wrapped, root))
}

func TestWrap_PreservesOriginalCodeWhenCodeUnknown(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeMissingIdentifier, "no id")
	outer := errors.Wrap(inner, errors.CodeUnknown, "adding context")

	assert.Equal(t, errors.ErrCodeMissingIdentifier, outer.Code)
}

func TestWrap_OverridesCodeWhenExplicit(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeInvalidDate, "bad date")
	outer := errors.Wrap(inner, errors.ErrCodeFieldParse, "field failed")

	assert.Equal(t, errors.ErrCodeFieldParse, outer.Code)
	assert.True(t, errors.IsCode(outer, errors.ErrCodeInvalidDate))
}

// ─────────────────────────────────────────────────────────────────────────────
// TestError_Method
// ─────────────────────────────────────────────────────────────────────────────

func TestError_Format(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.ErrCodeInvalidDate, "invalid date")
	assert.Equal(t, "[DOC_004] invalid date", ae.Error())

	detailed := ae.WithDetail("value=20011340")
	assert.Equal(t, "[DOC_004] invalid date: value=20011340", detailed.Error())

	caused := detailed.WithCause(fmt.Errorf("month out of range"))
	assert.Equal(t, "[DOC_004] invalid date: value=20011340: month out of range", caused.Error())
}

func TestWithDetail_NilReceiverReturnsNil(t *testing.T) {
	t.Parallel()

	var ae *errors.AppError
	assert.Nil(t, ae.WithDetail("x"))
	assert.Nil(t, ae.WithCause(stderrors.New("x")))
}

func TestWithDetail_DoesNotMutateOriginal(t *testing.T) {
	t.Parallel()

	original := errors.New(errors.ErrCodeNotFound, "resource missing")
	detailed := original.WithDetailf("id=%d", 42)

	assert.Empty(t, original.Detail)
	assert.Equal(t, "id=42", detailed.Detail)
}

// ─────────────────────────────────────────────────────────────────────────────
// Chain helpers
// ─────────────────────────────────────────────────────────────────────────────

func TestIs_MatchesSentinelByCode(t *testing.T) {
	t.Parallel()

	sentinel := errors.New(errors.ErrCodeUnsupportedFormat, "unsupported format")
	err := fmt.Errorf("dispatch: %w", errors.New(errors.ErrCodeUnsupportedFormat, "tag=foo"))

	assert.True(t, stderrors.Is(err, sentinel))
	assert.False(t, stderrors.Is(err, errors.New(errors.ErrCodeDocumentLoad, "x")))
}

func TestGetCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.ErrCodeDocumentLoad,
		errors.GetCode(fmt.Errorf("wrapped: %w", errors.New(errors.ErrCodeDocumentLoad, "x"))))
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.IsNotFound(errors.NotFound("missing")))
	assert.False(t, errors.IsNotFound(errors.Internal("boom")))
	assert.False(t, errors.IsNotFound(nil))
}

func TestAsReExport(t *testing.T) {
	t.Parallel()

	var target *errors.AppError
	err := fmt.Errorf("outer: %w", errors.InvalidParam("bad"))
	require.True(t, errors.As(err, &target))
	assert.Equal(t, errors.ErrCodeBadRequest, target.Code)
}

func TestWrapf_FormatsAndPreservesCode(t *testing.T) {
	t.Parallel()

	assert.Nil(t, errors.Wrapf(nil, errors.ErrCodeInternal, "x %d", 1))

	inner := errors.New(errors.ErrCodeInvalidDate, "bad date")
	outer := errors.Wrapf(inner, errors.CodeUnknown, "field %s", "pub-date")
	assert.Equal(t, errors.ErrCodeInvalidDate, outer.Code)
	assert.Equal(t, "field pub-date", outer.Message)
}

func TestStatusCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusNotFound, errors.NotFound("gone").StatusCode())
	assert.Equal(t, http.StatusBadRequest, errors.InvalidParam("bad").StatusCode())
}

//Personal.AI order the ending
