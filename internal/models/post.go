// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// PostStatus represents the moderation state of a post.
type PostStatus string

const (
	PostStatusPending  PostStatus = "pending"
	PostStatusApproved PostStatus = "approved"
	PostStatusRejected PostStatus = "rejected"
	PostStatusHidden   PostStatus = "hidden"
)

// PostStatuses lists every valid status in lifecycle order.
var PostStatuses = []PostStatus{
	PostStatusPending,
	PostStatusApproved,
	PostStatusRejected,
	PostStatusHidden,
}

// Valid reports whether s is one of the four lifecycle states.
func (s PostStatus) Valid() bool {
	return slices.Contains(PostStatuses, s)
}

// ParseStatus converts a raw value from the store into a PostStatus.
func ParseStatus(raw string) (PostStatus, error) {
	s := PostStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown post status %q", raw)
	}
	return s, nil
}

// Post is a single authored article together with its moderation state.
type Post struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	Title           string     `json:"title"`
	Content         string     `json:"content"`
	Excerpt         string     `json:"excerpt"`
	Tags            []string   `json:"tags"`
	Status          PostStatus `json:"status"`
	ApprovedBy      *uuid.UUID `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	NeedsReapproval bool       `json:"needs_reapproval"`
	ViewCount       int64      `json:"view_count"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// IsOwnedBy reports whether userID owns the post.
func (p *Post) IsOwnedBy(userID uuid.UUID) bool {
	return p.UserID == userID
}

// IsApproved returns true if the post is publicly visible.
func (p *Post) IsApproved() bool {
	return p.Status == PostStatusApproved
}

// Clone returns a deep copy so lifecycle results never alias the input.
func (p Post) Clone() Post {
	out := p
	if p.Tags != nil {
		out.Tags = append([]string(nil), p.Tags...)
	}
	if p.ApprovedBy != nil {
		id := *p.ApprovedBy
		out.ApprovedBy = &id
	}
	if p.ApprovedAt != nil {
		at := *p.ApprovedAt
		out.ApprovedAt = &at
	}
	return out
}

// PostWithAuthor is a post annotated with its owner's profile fields.
// Used by the moderation all-posts view.
type PostWithAuthor struct {
	Post
	AuthorUsername    string `json:"author_username"`
	AuthorDisplayName string `json:"author_display_name"`
	AuthorRestricted  bool   `json:"author_restricted"`
}

// AuthorName returns the best available label for the post's author.
func (p *PostWithAuthor) AuthorName() string {
	if p.AuthorDisplayName != "" {
		return p.AuthorDisplayName
	}
	if p.AuthorUsername != "" {
		return p.AuthorUsername
	}
	return "Unknown"
}

// AuthorStats summarizes one author's posts for the dashboard.
type AuthorStats struct {
	Total      int   `json:"total"`
	Approved   int   `json:"approved"`
	Pending    int   `json:"pending"`
	Rejected   int   `json:"rejected"`
	Hidden     int   `json:"hidden"`
	TotalViews int64 `json:"total_views"`
}

// StatsFor computes AuthorStats over posts.
func StatsFor(posts []Post) AuthorStats {
	var s AuthorStats
	for _, p := range posts {
		s.Total++
		s.TotalViews += p.ViewCount
		switch p.Status {
		case PostStatusApproved:
			s.Approved++
		case PostStatusPending:
			s.Pending++
		case PostStatusRejected:
			s.Rejected++
		case PostStatusHidden:
			s.Hidden++
		}
	}
	return s
}
