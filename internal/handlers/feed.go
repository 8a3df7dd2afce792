// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"net/http"

	"inkwell/internal/feed"
	"inkwell/internal/render"
)

// Feed serves the public, unauthenticated post listings.
type Feed struct {
	svc *feed.Service
}

// NewFeed creates the public feed handler group.
func NewFeed(svc *feed.Service) *Feed {
	return &Feed{svc: svc}
}

type listing struct {
	Posts []feed.Entry `json:"posts"`
}

// Latest lists approved posts, newest first.
func (f *Feed) Latest(w http.ResponseWriter, r *http.Request) {
	f.list(w, r, f.svc.Latest)
}

// Trending lists approved posts by view count.
func (f *Feed) Trending(w http.ResponseWriter, r *http.Request) {
	f.list(w, r, f.svc.Trending)
}

func (f *Feed) list(w http.ResponseWriter, r *http.Request, fetch func(context.Context, int) ([]feed.Entry, error)) {
	limit, msg := parseLimit(r.URL.Query().Get("limit"))
	if msg != "" {
		render.Status(w, http.StatusBadRequest, msg)
		return
	}
	entries, err := fetch(r.Context(), limit)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, listing{Posts: entries})
}

// Read returns one approved post with its rendered body.
func (f *Feed) Read(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	article, err := f.svc.Read(r.Context(), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, article)
}
