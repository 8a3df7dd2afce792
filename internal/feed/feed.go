// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package feed serves approved posts to readers.
package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"inkwell/internal/apperr"
	"inkwell/internal/lifecycle"
	"inkwell/internal/markdown"
	"inkwell/internal/models"
	"inkwell/internal/store"
)

// Page size limits for Latest and Trending.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Posts is the post store as seen by readers.
type Posts interface {
	QueryWithAuthors(ctx context.Context, q store.PostQuery) ([]models.PostWithAuthor, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	IncrementViews(ctx context.Context, id uuid.UUID) (bool, error)
}

// Profiles names the author of an article.
type Profiles interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

// Entry is a post in a listing.
type Entry struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Excerpt         string    `json:"excerpt"`
	Tags            []string  `json:"tags"`
	AuthorName      string    `json:"author_name"`
	ViewCount       int64     `json:"view_count"`
	ReadTimeMinutes int       `json:"read_time_minutes"`
	CreatedAt       time.Time `json:"created_at"`
}

// Article is a single post prepared for reading.
type Article struct {
	models.Post
	AuthorName      string `json:"author_name"`
	HTML            string `json:"html"`
	ReadTimeMinutes int    `json:"read_time_minutes"`
}

// Service reads the public feed.
type Service struct {
	posts    Posts
	profiles Profiles
}

// New creates a feed Service.
func New(posts Posts, profiles Profiles) *Service {
	return &Service{posts: posts, profiles: profiles}
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// Latest returns the newest approved posts.
func (s *Service) Latest(ctx context.Context, limit int) ([]Entry, error) {
	return s.list(ctx, "latest posts", store.OrderCreatedAt, limit)
}

// Trending returns the most viewed approved posts.
func (s *Service) Trending(ctx context.Context, limit int) ([]Entry, error) {
	return s.list(ctx, "trending posts", store.OrderViewCount, limit)
}

func (s *Service) list(ctx context.Context, op string, order store.OrderField, limit int) ([]Entry, error) {
	q := store.Newest(order).WithStatus(models.PostStatusApproved)
	q.Limit = clampLimit(limit)

	posts, err := s.posts.QueryWithAuthors(ctx, q)
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	entries := make([]Entry, 0, len(posts))
	for i := range posts {
		p := &posts[i]
		entries = append(entries, Entry{
			ID:              p.ID,
			Title:           p.Title,
			Excerpt:         p.Excerpt,
			Tags:            p.Tags,
			AuthorName:      p.AuthorName(),
			ViewCount:       p.ViewCount,
			ReadTimeMinutes: lifecycle.ReadTimeMinutes(p.Content),
			CreatedAt:       p.CreatedAt,
		})
	}
	return entries, nil
}

// Read returns an approved post and counts the view. Posts in any other
// status are reported as not found.
func (s *Service) Read(ctx context.Context, id uuid.UUID) (*Article, error) {
	const op = "read post"

	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Store(op, err)
	}
	if post == nil || !post.IsApproved() {
		return nil, apperr.New(apperr.KindNotFound, op, "Post not found.")
	}

	html, err := markdown.ToHTML(post.Content)
	if err != nil {
		return nil, apperr.Store(op, err)
	}

	counted, err := s.posts.IncrementViews(ctx, id)
	if err != nil {
		slog.Warn("view count not recorded", "post_id", id, "error", err)
	}
	if counted {
		post.ViewCount++
	}

	article := &Article{
		Post:            *post,
		AuthorName:      "Unknown",
		HTML:            html,
		ReadTimeMinutes: lifecycle.ReadTimeMinutes(post.Content),
	}
	profile, err := s.profiles.FindByUserID(ctx, post.UserID)
	if err != nil {
		slog.Warn("article author lookup failed", "post_id", id, "error", err)
	} else if profile != nil {
		article.AuthorName = profile.Name()
	}
	return article, nil
}
