// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"inkwell/internal/lifecycle"
	"inkwell/internal/moderation"
	"inkwell/internal/notify"
	"inkwell/internal/render"
)

// Moderation serves the admin review queue and user management under
// /api/admin. The admin check is the controller's access gate.
type Moderation struct {
	posts    moderation.Posts
	profiles moderation.Profiles
	engine   *lifecycle.Engine
}

// NewModeration creates the moderation handler group.
func NewModeration(posts moderation.Posts, profiles moderation.Profiles, engine *lifecycle.Engine) *Moderation {
	return &Moderation{posts: posts, profiles: profiles, engine: engine}
}

// restrictionInput carries the restriction flag the admin saw.
type restrictionInput struct {
	Current *bool `json:"current"`
}

func (h *Moderation) controller(w http.ResponseWriter, r *http.Request) (*moderation.Controller, *notify.Recorder, bool) {
	client, ok := sessionClient(w, r)
	if !ok {
		return nil, nil, false
	}
	rec := &notify.Recorder{}
	return moderation.New(client, h.posts, h.profiles, h.engine, rec), rec, true
}

// Overview opens the moderation view: pending queue, edited approved posts,
// all posts and users.
func (h *Moderation) Overview(w http.ResponseWriter, r *http.Request) {
	c, rec, ok := h.controller(w, r)
	if !ok {
		return
	}
	defer c.Close()

	if err := c.Open(r.Context()); err != nil {
		respond(w, r, http.StatusOK, nil, nil, rec, err)
		return
	}
	respond(w, r, http.StatusOK, c.Snapshot(), nil, rec, nil)
}

// Approve publishes a pending post or signs off an edited approved one.
func (h *Moderation) Approve(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, (*moderation.Controller).ApprovePost)
}

// Reject declines a pending post.
func (h *Moderation) Reject(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, (*moderation.Controller).RejectPost)
}

// Hide takes an approved post off the feed.
func (h *Moderation) Hide(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, (*moderation.Controller).HidePost)
}

func (h *Moderation) moderate(w http.ResponseWriter, r *http.Request,
	action func(*moderation.Controller, context.Context, uuid.UUID) error) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, rec, ok := h.controller(w, r)
	if !ok {
		return
	}
	defer c.Close()

	err := action(c, r.Context(), id)
	respond(w, r, http.StatusOK, c.Snapshot(), nil, rec, err)
}

// Restriction flips a user's restriction flag. The body must carry the
// value the admin saw so concurrent toggles do not cancel out.
func (h *Moderation) Restriction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in restrictionInput
	if err := render.Decode(r, &in); err != nil {
		render.Error(w, r, err)
		return
	}
	if in.Current == nil {
		render.Status(w, http.StatusUnprocessableEntity, "current is required.")
		return
	}

	c, rec, ok := h.controller(w, r)
	if !ok {
		return
	}
	defer c.Close()

	err := c.ToggleRestriction(r.Context(), id, *in.Current)
	respond(w, r, http.StatusOK, c.Snapshot(), nil, rec, err)
}
