// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package lifecycle decides which post status transitions are valid, who
// may perform them, and what the resulting record contains. It performs
// no I/O: persisting a result is the caller's job.
package lifecycle

import (
	"fmt"
	"time"

	"inkwell/internal/apperr"
	"inkwell/internal/authz"
	"inkwell/internal/models"
)

// Capabilities answers capability checks. *authz.Enforcer implements it.
type Capabilities interface {
	Can(actor authz.Actor, obj, act string) bool
}

// EditPolicy decides what an author edit does to the moderation status.
type EditPolicy string

const (
	// EditKeepStatus leaves the status as is. Approved posts are flagged
	// with NeedsReapproval so moderators can spot changed content.
	EditKeepStatus EditPolicy = "keep"
	// EditResubmit sends approved and rejected posts back to pending.
	EditResubmit EditPolicy = "resubmit"
)

// ParseEditPolicy converts a configuration value into an EditPolicy.
// An empty value selects EditKeepStatus.
func ParseEditPolicy(raw string) (EditPolicy, error) {
	switch EditPolicy(raw) {
	case "", EditKeepStatus:
		return EditKeepStatus, nil
	case EditResubmit:
		return EditResubmit, nil
	}
	return "", fmt.Errorf("unknown edit policy %q (want %q or %q)", raw, EditKeepStatus, EditResubmit)
}

// transition is one admin edge of the state machine.
type transition struct {
	act  string
	verb string
	from models.PostStatus
	to   models.PostStatus
}

var (
	approveEdge = transition{act: authz.ActApprove, verb: "approve", from: models.PostStatusPending, to: models.PostStatusApproved}
	rejectEdge  = transition{act: authz.ActReject, verb: "reject", from: models.PostStatusPending, to: models.PostStatusRejected}
	hideEdge    = transition{act: authz.ActHide, verb: "hide", from: models.PostStatusApproved, to: models.PostStatusHidden}

	// reapproveEdge signs off an approved post edited under EditKeepStatus.
	reapproveEdge = transition{act: authz.ActApprove, verb: "approve", from: models.PostStatusApproved, to: models.PostStatusApproved}
)

// Engine applies lifecycle rules.
type Engine struct {
	caps   Capabilities
	policy EditPolicy
	now    func() time.Time
}

// New creates an Engine that checks capabilities with caps.
func New(caps Capabilities, policy EditPolicy) *Engine {
	if policy == "" {
		policy = EditKeepStatus
	}
	return &Engine{caps: caps, policy: policy, now: time.Now}
}

// SetClock replaces the time source used for timestamps.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Policy returns the configured edit policy.
func (e *Engine) Policy() EditPolicy {
	return e.policy
}

// Require returns a PermissionDenied error unless actor may perform act on obj.
func (e *Engine) Require(actor authz.Actor, obj, act string) error {
	if actor.IsAnonymous() && act != authz.ActRead {
		return apperr.New(apperr.KindUnauthenticated, act+" "+obj, "Sign in to continue.")
	}
	if !e.caps.Can(actor, obj, act) {
		return apperr.Newf(apperr.KindPermissionDenied, act+" "+obj, "You are not allowed to %s this %s.", act, obj)
	}
	return nil
}

// Approve moves a pending post to approved and records the approver. An
// approved post flagged with NeedsReapproval may be approved again, which
// clears the flag and restamps the approver.
func (e *Engine) Approve(p models.Post, actor authz.Actor) (models.Post, error) {
	edge := approveEdge
	if p.Status == models.PostStatusApproved && p.NeedsReapproval {
		edge = reapproveEdge
	}
	out, err := e.apply(p, actor, edge)
	if err != nil {
		return p, err
	}
	at := e.now().UTC()
	by := actor.UserID
	out.ApprovedBy = &by
	out.ApprovedAt = &at
	out.NeedsReapproval = false
	return out, nil
}

// Reject moves a pending post to rejected. No approver is recorded.
func (e *Engine) Reject(p models.Post, actor authz.Actor) (models.Post, error) {
	return e.apply(p, actor, rejectEdge)
}

// Hide revokes an approved post. A pending re-review is settled by the
// hide, so NeedsReapproval is cleared.
func (e *Engine) Hide(p models.Post, actor authz.Actor) (models.Post, error) {
	out, err := e.apply(p, actor, hideEdge)
	if err != nil {
		return p, err
	}
	out.NeedsReapproval = false
	return out, nil
}

func (e *Engine) apply(p models.Post, actor authz.Actor, t transition) (models.Post, error) {
	if err := e.Require(actor, authz.ObjPost, t.act); err != nil {
		return p, err
	}
	if p.Status != t.from {
		return p, apperr.Newf(apperr.KindInvalidTransition, t.verb+" post",
			"Cannot %s a post that is %s.", t.verb, p.Status)
	}
	out := p.Clone()
	out.Status = t.to
	return out, nil
}

// Create builds a new pending post owned by actor. The status is forced to
// pending whatever the caller intended.
func (e *Engine) Create(actor authz.Actor, d Draft) (models.Post, error) {
	if err := e.Require(actor, authz.ObjPost, authz.ActCreate); err != nil {
		return models.Post{}, err
	}
	if err := Validate(d); err != nil {
		return models.Post{}, err
	}
	now := e.now().UTC()
	return models.Post{
		UserID:    actor.UserID,
		Title:     d.Title,
		Content:   d.Content,
		Excerpt:   d.Excerpt,
		Tags:      append([]string{}, d.Tags...),
		Status:    models.PostStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Edit applies an author's changes to p under the configured policy.
func (e *Engine) Edit(p models.Post, actor authz.Actor, d Draft) (models.Post, error) {
	if err := e.requireOwner(p, actor, authz.ActEdit); err != nil {
		return p, err
	}
	if err := Validate(d); err != nil {
		return p, err
	}

	out := p.Clone()
	out.Title = d.Title
	out.Content = d.Content
	out.Excerpt = d.Excerpt
	out.Tags = append([]string{}, d.Tags...)
	out.UpdatedAt = e.now().UTC()

	switch e.policy {
	case EditResubmit:
		if p.Status == models.PostStatusApproved || p.Status == models.PostStatusRejected {
			out.Status = models.PostStatusPending
			out.ApprovedBy = nil
			out.ApprovedAt = nil
			out.NeedsReapproval = false
		}
	default:
		if p.Status == models.PostStatusApproved {
			out.NeedsReapproval = true
		}
	}
	return out, nil
}

// CheckDelete allows the owning author to delete a post in any status.
func (e *Engine) CheckDelete(p models.Post, actor authz.Actor) error {
	return e.requireOwner(p, actor, authz.ActDelete)
}

func (e *Engine) requireOwner(p models.Post, actor authz.Actor, act string) error {
	if err := e.Require(actor, authz.ObjPost, act); err != nil {
		return err
	}
	if !p.IsOwnedBy(actor.UserID) {
		return apperr.Newf(apperr.KindPermissionDenied, act+" post", "Only the author can %s this post.", act)
	}
	return nil
}
