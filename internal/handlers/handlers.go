// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the JSON API. Each handler group builds the
// request-scoped controller it needs, runs one operation and writes the
// controller's view together with the notices the operation emitted.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"inkwell/internal/auth"
	"inkwell/internal/middleware"
	"inkwell/internal/notify"
	"inkwell/internal/render"
)

// envelope is the body of every controller-backed response. View is the
// controller snapshot after the operation, Result its direct return value.
type envelope struct {
	View    any               `json:"view,omitempty"`
	Result  any               `json:"result,omitempty"`
	Notices []notify.Notice   `json:"notices"`
	Error   *render.ErrorBody `json:"error,omitempty"`
}

// respond writes an envelope. A non-nil err decides the status and fills
// the Error field; the view is still included so a kept form survives.
func respond(w http.ResponseWriter, r *http.Request, status int, view, result any, rec *notify.Recorder, err error) {
	env := envelope{View: view, Result: result, Notices: rec.Notices()}
	if err != nil {
		code, body := render.Problem(r, err)
		status = code
		env.Error = &body
		env.Result = nil
	}
	render.JSON(w, status, env)
}

// sessionClient returns the client LoadSession put in the context.
func sessionClient(w http.ResponseWriter, r *http.Request) (*auth.Client, bool) {
	client := middleware.ClientFromCtx(r.Context())
	if client == nil {
		render.Status(w, http.StatusInternalServerError, "Session unavailable.")
		return nil, false
	}
	return client, true
}

// pathID parses the {id} URL parameter, answering 400 when it is not a UUID.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		render.Status(w, http.StatusBadRequest, "Invalid ID.")
		return uuid.Nil, false
	}
	return id, true
}
