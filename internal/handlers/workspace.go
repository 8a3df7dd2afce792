// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"inkwell/internal/lifecycle"
	"inkwell/internal/notify"
	"inkwell/internal/render"
	"inkwell/internal/workspace"
)

// Workspace serves an author's own posts under /api/me.
type Workspace struct {
	posts    workspace.Posts
	profiles workspace.Profiles
	engine   *lifecycle.Engine
}

// NewWorkspace creates the author workspace handler group.
func NewWorkspace(posts workspace.Posts, profiles workspace.Profiles, engine *lifecycle.Engine) *Workspace {
	return &Workspace{posts: posts, profiles: profiles, engine: engine}
}

type postInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Tags    string `json:"tags"`
}

// controller builds the request-scoped controller. The caller must Close it.
func (h *Workspace) controller(w http.ResponseWriter, r *http.Request) (*workspace.Controller, *notify.Recorder, bool) {
	client, ok := sessionClient(w, r)
	if !ok {
		return nil, nil, false
	}
	rec := &notify.Recorder{}
	return workspace.New(client, h.posts, h.profiles, h.engine, rec), rec, true
}

// List returns the caller's posts, most recently edited first.
func (h *Workspace) List(w http.ResponseWriter, r *http.Request) {
	c, rec, ok := h.controller(w, r)
	if !ok {
		return
	}
	defer c.Close()

	err := c.Open(r.Context())
	respond(w, r, http.StatusOK, c.Snapshot(), nil, rec, err)
}

// Create submits a new post for review.
func (h *Workspace) Create(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, nil, http.StatusCreated)
}

// Update saves an edit of one of the caller's posts.
func (h *Workspace) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h.submit(w, r, &id, http.StatusOK)
}

func (h *Workspace) submit(w http.ResponseWriter, r *http.Request, editing *uuid.UUID, status int) {
	var in postInput
	if err := render.Decode(r, &in); err != nil {
		render.Error(w, r, err)
		return
	}
	if msg := validateTags(in.Tags); msg != "" {
		render.Status(w, http.StatusUnprocessableEntity, msg)
		return
	}

	c, rec, ok := h.controller(w, r)
	if !ok {
		return
	}
	defer c.Close()

	post, err := c.Submit(r.Context(), workspace.Form{
		EditingID: editing,
		Title:     in.Title,
		Content:   in.Content,
		Tags:      in.Tags,
	})
	respond(w, r, status, c.Snapshot(), post, rec, err)
}

// Delete removes one of the caller's posts.
func (h *Workspace) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, rec, ok := h.controller(w, r)
	if !ok {
		return
	}
	defer c.Close()

	err := c.DeletePost(r.Context(), id)
	respond(w, r, http.StatusOK, c.Snapshot(), nil, rec, err)
}

// Form loads a post into the edit form.
func (h *Workspace) Form(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, rec, ok := h.controller(w, r)
	if !ok {
		return
	}
	defer c.Close()

	form, err := c.LoadForEdit(r.Context(), id)
	respond(w, r, http.StatusOK, nil, form, rec, err)
}

// Dashboard returns the caller's post counters.
func (h *Workspace) Dashboard(w http.ResponseWriter, r *http.Request) {
	c, rec, ok := h.controller(w, r)
	if !ok {
		return
	}
	defer c.Close()

	stats, err := c.Dashboard(r.Context())
	respond(w, r, http.StatusOK, nil, stats, rec, err)
}
