// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"inkwell/internal/models"
)

// OrderField names a sortable post column.
type OrderField string

const (
	OrderCreatedAt OrderField = "created_at"
	OrderUpdatedAt OrderField = "updated_at"
	OrderViewCount OrderField = "view_count"
)

// PostQuery filters and orders a post read. Nil filters match everything;
// a zero Limit means no limit.
type PostQuery struct {
	Status          *models.PostStatus
	UserID          *uuid.UUID
	NeedsReapproval *bool
	OrderBy         OrderField
	Ascending       bool
	Limit           int
}

// WithStatus returns a copy of q filtered on status.
func (q PostQuery) WithStatus(s models.PostStatus) PostQuery {
	q.Status = &s
	return q
}

// WithOwner returns a copy of q filtered on the owning user.
func (q PostQuery) WithOwner(id uuid.UUID) PostQuery {
	q.UserID = &id
	return q
}

// WithReapproval returns a copy of q filtered on the needs_reapproval flag.
func (q PostQuery) WithReapproval(flagged bool) PostQuery {
	q.NeedsReapproval = &flagged
	return q
}

// Newest orders by field descending.
func Newest(field OrderField) PostQuery {
	return PostQuery{OrderBy: field}
}

// build renders the WHERE/ORDER BY/LIMIT tail for q. Column names come
// from a fixed set; values are always bound as arguments.
func (q PostQuery) build(alias string) (string, []any, error) {
	col := func(name string) string {
		if alias == "" {
			return name
		}
		return alias + "." + name
	}

	var (
		where []string
		args  []any
	)
	if q.Status != nil {
		if !q.Status.Valid() {
			return "", nil, fmt.Errorf("invalid status filter %q", *q.Status)
		}
		args = append(args, string(*q.Status))
		where = append(where, fmt.Sprintf("%s = $%d", col("status"), len(args)))
	}
	if q.UserID != nil {
		args = append(args, *q.UserID)
		where = append(where, fmt.Sprintf("%s = $%d", col("user_id"), len(args)))
	}
	if q.NeedsReapproval != nil {
		args = append(args, *q.NeedsReapproval)
		where = append(where, fmt.Sprintf("%s = $%d", col("needs_reapproval"), len(args)))
	}

	var b strings.Builder
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}

	order := q.OrderBy
	if order == "" {
		order = OrderCreatedAt
	}
	switch order {
	case OrderCreatedAt, OrderUpdatedAt, OrderViewCount:
	default:
		return "", nil, fmt.Errorf("invalid order field %q", order)
	}
	dir := "DESC"
	if q.Ascending {
		dir = "ASC"
	}
	fmt.Fprintf(&b, " ORDER BY %s %s, %s %s", col(string(order)), dir, col("id"), dir)

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	return b.String(), args, nil
}
