// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render writes JSON responses for the API. Errors are mapped from
// their apperr kind to an HTTP status; causes of store failures stay in the
// server log.
package render

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"inkwell/internal/apperr"
	"inkwell/internal/notify"
)

// maxBodyBytes caps request bodies accepted by Decode.
const maxBodyBytes = 1 << 20

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindPermissionDenied:
		return http.StatusForbidden
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindInvalidTransition, apperr.KindStaleWrite:
		return http.StatusConflict
	case apperr.KindBusy:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

// Problem classifies err into a status and body. Store failures are logged
// and get a generic message.
func Problem(r *http.Request, err error) (int, ErrorBody) {
	kind := apperr.KindOf(err)
	msg := apperr.MessageOf(err)
	if kind == apperr.KindStore {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = notify.GenericFailure
	}
	status := StatusOf(kind)
	return status, ErrorBody{Error: http.StatusText(status), Kind: string(kind), Message: msg}
}

// Error writes err as an ErrorBody.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status, body := Problem(r, err)
	JSON(w, status, body)
}

// Status writes a plain error body for failures raised outside the
// application (bad JSON, panics, rate limits).
func Status(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorBody{Error: http.StatusText(status), Message: message})
}

// Decode reads a JSON body into v. Unknown fields are rejected. The error
// is a validation error suitable for Error.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.New(apperr.KindValidation, "decode request", "Request body is required.")
		}
		return apperr.New(apperr.KindValidation, "decode request", "Request body is not valid JSON.")
	}
	return nil
}
