// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"inkwell/internal/models"
)

const postColumns = `p.id, p.user_id, p.title, p.content, p.excerpt, p.tags, p.status,
		       p.approved_by, p.approved_at, p.needs_reapproval, p.view_count,
		       p.created_at, p.updated_at`

// PostStore handles all post-related database operations.
type PostStore struct {
	db *sql.DB
}

// NewPostStore creates a new PostStore with the given database connection.
func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{db: db}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// postRow holds raw column values before they are validated into a Post.
type postRow struct {
	post   models.Post
	status string
}

func (r *postRow) targets(m *pgtype.Map) []any {
	p := &r.post
	return []any{
		&p.ID, &p.UserID, &p.Title, &p.Content, &p.Excerpt, m.SQLScanner(&p.Tags), &r.status,
		&p.ApprovedBy, &p.ApprovedAt, &p.NeedsReapproval, &p.ViewCount,
		&p.CreatedAt, &p.UpdatedAt,
	}
}

// finish validates the raw row. Unknown statuses are rejected rather than
// passed on to the lifecycle engine.
func (r *postRow) finish() (models.Post, error) {
	status, err := models.ParseStatus(r.status)
	if err != nil {
		return models.Post{}, fmt.Errorf("malformed post %s: %w", r.post.ID, err)
	}
	r.post.Status = status
	if r.post.Tags == nil {
		r.post.Tags = []string{}
	}
	return r.post, nil
}

func scanPost(s rowScanner, m *pgtype.Map) (models.Post, error) {
	var r postRow
	if err := s.Scan(r.targets(m)...); err != nil {
		return models.Post{}, err
	}
	return r.finish()
}

// Query returns posts matching q. Rows that fail validation are logged
// and skipped.
func (s *PostStore) Query(ctx context.Context, q PostQuery) ([]models.Post, error) {
	tail, args, err := q.build("p")
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+postColumns+` FROM posts p`+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	m := pgtype.NewMap()
	posts := []models.Post{}
	for rows.Next() {
		var r postRow
		if err := rows.Scan(r.targets(m)...); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		p, err := r.finish()
		if err != nil {
			slog.Warn("skipping post row", "error", err)
			continue
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// QueryWithAuthors is Query with each post annotated by its owner's profile.
func (s *PostStore) QueryWithAuthors(ctx context.Context, q PostQuery) ([]models.PostWithAuthor, error) {
	tail, args, err := q.build("p")
	if err != nil {
		return nil, fmt.Errorf("query posts with authors: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+`,
		       COALESCE(pr.username, ''), COALESCE(pr.display_name, ''),
		       COALESCE(pr.is_restricted, FALSE)
		FROM posts p
		LEFT JOIN profiles pr ON pr.user_id = p.user_id`+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts with authors: %w", err)
	}
	defer rows.Close()

	m := pgtype.NewMap()
	items := []models.PostWithAuthor{}
	for rows.Next() {
		var (
			r    postRow
			item models.PostWithAuthor
		)
		dest := append(r.targets(m), &item.AuthorUsername, &item.AuthorDisplayName, &item.AuthorRestricted)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan post with author: %w", err)
		}
		p, err := r.finish()
		if err != nil {
			slog.Warn("skipping post row", "error", err)
			continue
		}
		item.Post = p
		items = append(items, item)
	}
	return items, rows.Err()
}

// FindByID retrieves a post by its UUID. Returns nil if not found.
func (s *PostStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts p WHERE p.id = $1`, id)
	p, err := scanPost(row, pgtype.NewMap())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find post by id: %w", err)
	}
	return &p, nil
}

// Insert stores a new post and returns it with the generated ID. Timestamps
// are taken from p when set, otherwise from the database clock.
func (s *PostStore) Insert(ctx context.Context, p *models.Post) (*models.Post, error) {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO posts AS p (user_id, title, content, excerpt, tags, status,
		                        approved_by, approved_at, needs_reapproval,
		                        created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9,
		        COALESCE($10, NOW()), COALESCE($11, NOW()))
		RETURNING `+postColumns,
		p.UserID, p.Title, p.Content, p.Excerpt, tags, string(p.Status),
		p.ApprovedBy, p.ApprovedAt, p.NeedsReapproval,
		nullTime(p.CreatedAt), nullTime(p.UpdatedAt),
	)
	created, err := scanPost(row, pgtype.NewMap())
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return &created, nil
}

// UpdateContent writes an author edit. The write only applies when the
// post is owned by owner and still has status from; otherwise it affects
// zero rows.
func (s *PostStore) UpdateContent(ctx context.Context, id, owner uuid.UUID, from models.PostStatus, p models.Post) (int64, error) {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE posts SET
			title = $1, content = $2, excerpt = $3, tags = $4, status = $5,
			approved_by = $6, approved_at = $7, needs_reapproval = $8,
			updated_at = COALESCE($9, NOW())
		WHERE id = $10 AND user_id = $11 AND status = $12
	`, p.Title, p.Content, p.Excerpt, tags, string(p.Status),
		p.ApprovedBy, p.ApprovedAt, p.NeedsReapproval,
		nullTime(p.UpdatedAt), id, owner, string(from),
	)
	if err != nil {
		return 0, fmt.Errorf("update post content: %w", err)
	}
	return result.RowsAffected()
}

// UpdateStatus writes a moderation transition. It only applies while the
// post still has status from, so two moderators cannot both act on the
// same pending post.
func (s *PostStore) UpdateStatus(ctx context.Context, id uuid.UUID, from models.PostStatus, p models.Post) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE posts SET
			status = $1, approved_by = $2, approved_at = $3, needs_reapproval = $4
		WHERE id = $5 AND status = $6
	`, string(p.Status), p.ApprovedBy, p.ApprovedAt, p.NeedsReapproval, id, string(from))
	if err != nil {
		return 0, fmt.Errorf("update post status: %w", err)
	}
	return result.RowsAffected()
}

// Delete removes a post owned by owner.
func (s *PostStore) Delete(ctx context.Context, id, owner uuid.UUID) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1 AND user_id = $2`, id, owner)
	if err != nil {
		return 0, fmt.Errorf("delete post: %w", err)
	}
	return result.RowsAffected()
}

// IncrementViews bumps the view counter of an approved post. Reports
// whether a post was counted.
func (s *PostStore) IncrementViews(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE posts SET view_count = view_count + 1 WHERE id = $1 AND status = 'approved'
	`, id)
	if err != nil {
		return false, fmt.Errorf("increment post views: %w", err)
	}
	n, err := result.RowsAffected()
	return n > 0, err
}
