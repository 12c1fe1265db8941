// internal/app/system/httpjson/httpjson.go
//
// Package httpjson writes the API's JSON envelope and decodes request
// bodies. Every response carries {"success": bool, "message": string}
// plus optional data or field errors, so clients handle one shape.
package httpjson

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kneetrack/kneetrack/internal/app/system/limits"
)

// Envelope is the standard response body.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

// Write marshals v and writes it with the given status. Marshal failures
// degrade to a plain 500 so the client always gets a response.
func Write(w http.ResponseWriter, r *http.Request, status int, v any) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	js, err := json.Marshal(v)
	if err != nil {
		zap.L().Error("failed to marshal JSON response",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(js); err != nil {
		zap.L().Warn("failed to write response body",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
	}
}

// OK writes a 200 success envelope with data.
func OK(w http.ResponseWriter, r *http.Request, data any) {
	Write(w, r, http.StatusOK, Envelope{Success: true, Data: data})
}

// OKMessage writes a 200 success envelope with a message and data.
func OKMessage(w http.ResponseWriter, r *http.Request, message string, data any) {
	Write(w, r, http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

// Created writes a 201 success envelope with data.
func Created(w http.ResponseWriter, r *http.Request, data any) {
	Write(w, r, http.StatusCreated, Envelope{Success: true, Data: data})
}

// Error writes a failure envelope with the given status and message.
func Error(w http.ResponseWriter, r *http.Request, status int, message string) {
	Write(w, r, status, Envelope{Success: false, Message: message})
}

// ValidationError writes a 400 with per-field error details.
func ValidationError(w http.ResponseWriter, r *http.Request, message string, fieldErrors any) {
	Write(w, r, http.StatusBadRequest, Envelope{Success: false, Message: message, Errors: fieldErrors})
}

// BadRequest writes a 400.
func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	Error(w, r, http.StatusBadRequest, message)
}

// Unauthorized writes a 401.
func Unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	Error(w, r, http.StatusUnauthorized, message)
}

// Forbidden writes a 403.
func Forbidden(w http.ResponseWriter, r *http.Request, message string) {
	Error(w, r, http.StatusForbidden, message)
}

// NotFound writes a 404.
func NotFound(w http.ResponseWriter, r *http.Request, message string) {
	Error(w, r, http.StatusNotFound, message)
}

// TooManyRequests writes a 429.
func TooManyRequests(w http.ResponseWriter, r *http.Request) {
	Error(w, r, http.StatusTooManyRequests, "Too many requests, please try again later.")
}

// Internal logs err and writes a generic 500. The error detail never
// reaches the client.
func Internal(w http.ResponseWriter, r *http.Request, err error) {
	zap.L().Error("internal server error",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	Error(w, r, http.StatusInternalServerError, "Internal server error")
}

// Decode reads a JSON request body into v, capping the body size.
// Returns a client-presentable error message on failure.
func Decode(r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, limits.MaxJSONBodySize)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return errors.New("request body too large")
		case errors.Is(err, io.EOF):
			return errors.New("request body is empty")
		default:
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) ||
				strings.Contains(err.Error(), "invalid character") {
				return errors.New("malformed JSON in request body")
			}
			return err
		}
	}
	return nil
}
