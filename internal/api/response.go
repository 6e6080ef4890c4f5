// Package api provides the JSON response envelope and error type shared by
// HTTP handlers.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vitalvas/fastapify/internal/logger"
	"github.com/vitalvas/fastapify/validate"
)

// Error codes carried in the "code" field of error responses.
const (
	CodeSuccess         = "SUCCESS"
	CodeValidation      = "VALIDATION_ERROR"
	CodeBadRequest      = "BAD_REQUEST"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "RESOURCE_CONFLICT"
	CodeUpload          = "UPLOAD_ERROR"
	CodeTooManyRequests = "TOO_MANY_REQUESTS"
	CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	CodeInternal        = "INTERNAL_ERROR"
)

// Response is the success envelope.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Code       string `json:"code"`
	Data       any    `json:"data"`
}

// ErrorBody is the error envelope. Errors is omitted when empty.
type ErrorBody struct {
	StatusCode int    `json:"statusCode"`
	Success    bool   `json:"success"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Errors     []any  `json:"errors,omitempty"`
}

// Error is an error with an HTTP status and an error code.
type Error struct {
	Status  int
	Code    string
	Message string
	Errors  []any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError returns an *Error. An empty message uses "Something went wrong".
func NewError(status int, code, message string) *Error {
	if message == "" {
		message = "Something went wrong"
	}

	return &Error{Status: status, Code: code, Message: message}
}

// Wrap attaches a cause to the error.
func (e *Error) Wrap(err error) *Error {
	out := *e
	out.Err = err

	return &out
}

func BadRequest(message string) *Error {
	return NewError(http.StatusBadRequest, CodeBadRequest, message)
}

func Unauthorized(message string) *Error {
	return NewError(http.StatusUnauthorized, CodeUnauthorized, message)
}

func Forbidden(message string) *Error {
	return NewError(http.StatusForbidden, CodeForbidden, message)
}

func NotFound(message string) *Error {
	return NewError(http.StatusNotFound, CodeNotFound, message)
}

func Conflict(message string) *Error {
	return NewError(http.StatusConflict, CodeConflict, message)
}

func UploadError(message string) *Error {
	return NewError(http.StatusBadRequest, CodeUpload, message)
}

func TooManyRequests(message string) *Error {
	return NewError(http.StatusTooManyRequests, CodeTooManyRequests, message)
}

// JSON encodes v and writes it with status code. Encoding failures result in
// a plain 500 response.
func JSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}

// OK writes a success envelope around data. An empty message uses "Success".
func OK(w http.ResponseWriter, code int, data any, message string) {
	if message == "" {
		message = "Success"
	}

	JSON(w, code, Response{
		StatusCode: code,
		Success:    code < http.StatusBadRequest,
		Message:    message,
		Code:       CodeSuccess,
		Data:       data,
	})
}

// WriteError maps err to an error envelope. *Error keeps its status and code,
// *validate.Error becomes 422 VALIDATION_ERROR, validate.ErrBodyTooLarge
// becomes 413 PAYLOAD_TOO_LARGE, anything else is logged and reported as
// 500 INTERNAL_ERROR.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		apiErr *Error
		valErr *validate.Error
	)

	switch {
	case errors.As(err, &apiErr):
		JSON(w, apiErr.Status, ErrorBody{
			StatusCode: apiErr.Status,
			Code:       apiErr.Code,
			Message:    apiErr.Message,
			Errors:     apiErr.Errors,
		})

	case errors.Is(err, validate.ErrBodyTooLarge):
		JSON(w, http.StatusRequestEntityTooLarge, ErrorBody{
			StatusCode: http.StatusRequestEntityTooLarge,
			Code:       CodePayloadTooLarge,
			Message:    "Request body too large",
		})

	case errors.As(err, &valErr):
		issues := make([]any, 0, len(valErr.Issues))
		for _, is := range valErr.Issues {
			issues = append(issues, is)
		}

		JSON(w, http.StatusUnprocessableEntity, ErrorBody{
			StatusCode: http.StatusUnprocessableEntity,
			Code:       CodeValidation,
			Message:    "Validation failed",
			Errors:     issues,
		})

	default:
		logger.FromContext(r.Context()).Error("unhandled error",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)

		JSON(w, http.StatusInternalServerError, ErrorBody{
			StatusCode: http.StatusInternalServerError,
			Code:       CodeInternal,
			Message:    "Internal Server Error",
		})
	}
}

// NotFoundHandler reports unmatched routes as 404 NOT_FOUND.
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, NotFound("Route "+r.Method+" "+r.URL.Path+" not found"))
}

// MethodNotAllowedHandler reports a path matched with a wrong method.
func MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, NewError(http.StatusMethodNotAllowed, CodeBadRequest, "Method "+r.Method+" not allowed"))
}
