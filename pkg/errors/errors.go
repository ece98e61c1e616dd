// Package errors carries the structured error type shared by every layer of
// the patentdoc toolchain.  Parsers, the corpus pipeline, the stores and the
// HTTP/CLI surfaces all report failures as *AppError so that one ErrorCode
// drives the exit code, the HTTP status, the log fields and the metric label.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

const maxFrames = 32

// AppError is a coded error with optional detail and cause.  Values declared
// at package level act as sentinels: errors.Is matches on Code alone.
//
//	var ErrUnknownFormat = errors.New(errors.ErrCodeUnsupportedFormat, "unknown format")
//	return ErrUnknownFormat.WithDetail("format=" + tag)
type AppError struct {
	Code    ErrorCode
	Message string
	// Detail holds identifying context such as document ids or raw values.
	Detail string
	Cause  error
	// Stack is captured at construction and never printed by Error.
	Stack string
}

func build(code ErrorCode, msg string, cause error) *AppError {
	return &AppError{Code: code, Message: msg, Cause: cause, Stack: callers(3)}
}

// callers renders the stack above the exported constructor, dropping
// runtime frames.
func callers(skip int) string {
	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(skip+1, pcs)
	if n == 0 {
		return ""
	}
	var sb strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for more := true; more; {
		var f runtime.Frame
		f, more = frames.Next()
		if strings.Contains(f.File, "runtime/") {
			continue
		}
		fmt.Fprintf(&sb, "\n\t%s:%d %s", f.File, f.Line, f.Function)
	}
	return sb.String()
}

// Error renders "[CODE] message: detail: cause", omitting empty parts.
func (e *AppError) Error() string {
	parts := []string{fmt.Sprintf("[%s] %s", e.Code, e.Message)}
	if e.Detail != "" {
		parts = append(parts, e.Detail)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is matches any *AppError with the same code.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) || other == nil {
		return false
	}
	return other.Code == e.Code
}

// StatusCode maps the error's code to an HTTP status.
func (e *AppError) StatusCode() int { return HTTPStatusForCode(e.Code) }

// WithDetail returns a copy carrying detail.  Sentinels stay untouched; a nil
// receiver yields nil.
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Detail = detail
	return &cp
}

func (e *AppError) WithDetailf(format string, args ...interface{}) *AppError {
	return e.WithDetail(fmt.Sprintf(format, args...))
}

// WithCause returns a copy wrapping err.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Cause = err
	return &cp
}

func New(code ErrorCode, message string) *AppError {
	return build(code, message, nil)
}

func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return build(code, fmt.Sprintf(format, args...), nil)
}

// Wrap attaches code and message to err and returns nil for a nil err.
// Passing CodeUnknown keeps the code of an *AppError already in the chain.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == CodeUnknown {
		code = GetCode(err)
	}
	return build(code, message, err)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	if err == nil {
		return nil
	}
	if code == CodeUnknown {
		code = GetCode(err)
	}
	return build(code, fmt.Sprintf(format, args...), err)
}

// NotFound, InvalidParam and Internal cover the codes the HTTP layer
// produces most.
func NotFound(message string) *AppError { return build(ErrCodeNotFound, message, nil) }

func InvalidParam(message string) *AppError { return build(ErrCodeBadRequest, message, nil) }

func Internal(message string) *AppError { return build(ErrCodeInternal, message, nil) }

// IsCode walks err's chain looking for an *AppError with code.
func IsCode(err error, code ErrorCode) bool {
	for ; err != nil; err = errors.Unwrap(err) {
		if ae, ok := err.(*AppError); ok && ae.Code == code {
			return true
		}
	}
	return false
}

func IsNotFound(err error) bool { return IsCode(err, ErrCodeNotFound) }

// GetCode returns the code of the outermost *AppError, CodeOK for nil and
// CodeUnknown for foreign errors.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// As, Is and Join re-export the standard helpers so callers need one import.
func As(err error, target interface{}) bool { return errors.As(err, target) }

func Is(err, target error) bool { return errors.Is(err, target) }

func Join(errs ...error) error { return errors.Join(errs...) }

//Personal.AI order the ending
