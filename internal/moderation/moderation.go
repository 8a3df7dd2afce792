// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package moderation implements the admin console: the review queue, the
// full post list, the user list and the actions taken on them.
package moderation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"inkwell/internal/apperr"
	"inkwell/internal/auth"
	"inkwell/internal/authz"
	"inkwell/internal/lifecycle"
	"inkwell/internal/models"
	"inkwell/internal/notify"
	"inkwell/internal/store"
)

// Posts is the post store as seen by moderators.
type Posts interface {
	Query(ctx context.Context, q store.PostQuery) ([]models.Post, error)
	QueryWithAuthors(ctx context.Context, q store.PostQuery) ([]models.PostWithAuthor, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from models.PostStatus, p models.Post) (int64, error)
}

// Profiles is the profile store as seen by moderators.
type Profiles interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	List(ctx context.Context) ([]models.Profile, error)
	SetRestricted(ctx context.Context, userID uuid.UUID, expected, value bool) (int64, error)
}

// Sessions is the session provider view a controller needs.
// *auth.Client implements it.
type Sessions interface {
	GetCurrentSession() *auth.Session
	OnSessionChange(fn auth.Listener) (unsubscribe func())
}

// ErrClosed is returned by actions started after Close.
var ErrClosed = apperr.New(apperr.KindBusy, "moderation", "This view is no longer active.")

// Snapshot is the view state rendered to the admin.
type Snapshot struct {
	Pending         []models.Post           `json:"pending"`
	Reapproval      []models.Post           `json:"reapproval"`
	All             []models.PostWithAuthor `json:"all"`
	Users           []models.Profile        `json:"users"`
	PendingCount    int                     `json:"pending_count"`
	ReapprovalCount int                     `json:"reapproval_count"`
	RestrictedCount int                     `json:"restricted_count"`
	Busy            bool                    `json:"busy"`
}

// Controller is request scoped. One mutation may be in flight at a time.
type Controller struct {
	posts    Posts
	profiles Profiles
	engine   *lifecycle.Engine
	notifier notify.Notifier
	sessions Sessions

	unsubscribe func()

	mu         sync.Mutex
	busy       bool
	closed     bool
	pending    []models.Post
	reapproval []models.Post
	all        []models.PostWithAuthor
	users      []models.Profile
}

// New creates a controller and subscribes it to session changes.
func New(sessions Sessions, posts Posts, profiles Profiles, engine *lifecycle.Engine, notifier notify.Notifier) *Controller {
	if notifier == nil {
		notifier = notify.Discard
	}
	c := &Controller{
		posts:    posts,
		profiles: profiles,
		engine:   engine,
		notifier: notifier,
		sessions: sessions,
	}
	c.unsubscribe = sessions.OnSessionChange(c.onSessionChange)
	return c
}

// Close detaches the controller. Results of actions still in flight are
// discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.unsubscribe()
}

func (c *Controller) onSessionChange(event auth.Event, _ *auth.Session) {
	if event == auth.EventTokenRefreshed {
		return
	}
	c.mu.Lock()
	c.pending, c.reapproval, c.all, c.users = nil, nil, nil, nil
	c.mu.Unlock()
}

// actor resolves the current session into an actor and requires it to
// hold act on obj.
func (c *Controller) actor(ctx context.Context, obj, act string) (authz.Actor, error) {
	sess := c.sessions.GetCurrentSession()
	if sess == nil {
		return authz.Actor{}, c.engine.Require(authz.Actor{Capability: authz.Anonymous}, obj, act)
	}
	profile, err := c.profiles.FindByUserID(ctx, sess.UserID)
	if err != nil {
		return authz.Actor{}, apperr.Store("load profile", err)
	}
	actor := authz.Resolve(sess.UserID, profile)
	if err := c.engine.Require(actor, obj, act); err != nil {
		return authz.Actor{}, apperr.New(apperr.KindOf(err), "moderation", "Admin access required.")
	}
	return actor, nil
}

// Open is the access gate. It requires an admin session and loads every
// view. Unauthenticated errors send the caller to sign in; permission
// errors send it to its own profile.
func (c *Controller) Open(ctx context.Context) error {
	if _, err := c.actor(ctx, authz.ObjPost, authz.ActListAll); err != nil {
		return err
	}
	c.refreshPosts(ctx)
	c.refreshUsers(ctx)
	return nil
}

// ListPending loads the review queue, oldest submissions last.
func (c *Controller) ListPending(ctx context.Context) ([]models.Post, error) {
	if _, err := c.actor(ctx, authz.ObjPost, authz.ActListAll); err != nil {
		return nil, err
	}
	return c.loadPending(ctx)
}

// ListReapproval loads approved posts whose content changed since they
// were approved, most recently edited first.
func (c *Controller) ListReapproval(ctx context.Context) ([]models.Post, error) {
	if _, err := c.actor(ctx, authz.ObjPost, authz.ActListAll); err != nil {
		return nil, err
	}
	return c.loadReapproval(ctx)
}

// ListAll loads every post with its author.
func (c *Controller) ListAll(ctx context.Context) ([]models.PostWithAuthor, error) {
	if _, err := c.actor(ctx, authz.ObjPost, authz.ActListAll); err != nil {
		return nil, err
	}
	return c.loadAll(ctx)
}

// ListUsers loads every profile, newest first.
func (c *Controller) ListUsers(ctx context.Context) ([]models.Profile, error) {
	if _, err := c.actor(ctx, authz.ObjProfile, authz.ActListAll); err != nil {
		return nil, err
	}
	return c.loadUsers(ctx)
}

func (c *Controller) loadPending(ctx context.Context) ([]models.Post, error) {
	posts, err := c.posts.Query(ctx, store.Newest(store.OrderCreatedAt).WithStatus(models.PostStatusPending))
	if err != nil {
		err = apperr.Store("list pending posts", err)
		c.notify(ctx, notify.Failure("Failed to load pending posts", err))
		return nil, err
	}
	c.apply(ctx, func() { c.pending = posts })
	return posts, nil
}

func (c *Controller) loadReapproval(ctx context.Context) ([]models.Post, error) {
	q := store.Newest(store.OrderUpdatedAt).WithStatus(models.PostStatusApproved).WithReapproval(true)
	posts, err := c.posts.Query(ctx, q)
	if err != nil {
		err = apperr.Store("list edited posts", err)
		c.notify(ctx, notify.Failure("Failed to load edited posts", err))
		return nil, err
	}
	c.apply(ctx, func() { c.reapproval = posts })
	return posts, nil
}

func (c *Controller) loadAll(ctx context.Context) ([]models.PostWithAuthor, error) {
	posts, err := c.posts.QueryWithAuthors(ctx, store.Newest(store.OrderCreatedAt))
	if err != nil {
		err = apperr.Store("list posts", err)
		c.notify(ctx, notify.Failure("Failed to load posts", err))
		return nil, err
	}
	c.apply(ctx, func() { c.all = posts })
	return posts, nil
}

func (c *Controller) loadUsers(ctx context.Context) ([]models.Profile, error) {
	users, err := c.profiles.List(ctx)
	if err != nil {
		err = apperr.Store("list users", err)
		c.notify(ctx, notify.Failure("Failed to load users", err))
		return nil, err
	}
	c.apply(ctx, func() { c.users = users })
	return users, nil
}

// refreshPosts reloads every post view. Failures are reported as notices
// and leave the previous view in place.
func (c *Controller) refreshPosts(ctx context.Context) {
	c.loadPending(ctx)
	c.loadReapproval(ctx)
	c.loadAll(ctx)
}

func (c *Controller) refreshUsers(ctx context.Context) {
	c.loadUsers(ctx)
}

// apply runs fn under the lock unless the controller is closed or the
// request is gone.
func (c *Controller) apply(ctx context.Context, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || ctx.Err() != nil {
		return
	}
	fn()
}

func (c *Controller) notify(ctx context.Context, n notify.Notice) {
	c.mu.Lock()
	live := !c.closed && ctx.Err() == nil
	c.mu.Unlock()
	if live {
		c.notifier.Notify(n)
	}
}

func (c *Controller) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.busy {
		return apperr.New(apperr.KindBusy, "moderation", "Another action is still in progress.")
	}
	c.busy = true
	return nil
}

func (c *Controller) end() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

type outcome struct {
	transition func(models.Post, authz.Actor) (models.Post, error)
	act        string
	success    string
	failure    string
}

// ApprovePost publishes a pending post, or signs off an approved post
// that was edited after approval.
func (c *Controller) ApprovePost(ctx context.Context, id uuid.UUID) error {
	return c.moderate(ctx, id, outcome{c.engine.Approve, authz.ActApprove, "Post approved!", "Failed to approve"})
}

// RejectPost rejects a pending post.
func (c *Controller) RejectPost(ctx context.Context, id uuid.UUID) error {
	return c.moderate(ctx, id, outcome{c.engine.Reject, authz.ActReject, "Post rejected", "Failed to reject"})
}

// HidePost takes an approved post out of the public feed.
func (c *Controller) HidePost(ctx context.Context, id uuid.UUID) error {
	return c.moderate(ctx, id, outcome{c.engine.Hide, authz.ActHide, "Post hidden", "Failed to hide"})
}

func (c *Controller) moderate(ctx context.Context, id uuid.UUID, o outcome) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	err := c.transition(ctx, id, o)
	if err != nil {
		c.notify(ctx, notify.Failure(o.failure, err))
		return err
	}
	c.notify(ctx, notify.Success(o.success, ""))
	c.refreshPosts(ctx)
	return nil
}

func (c *Controller) transition(ctx context.Context, id uuid.UUID, o outcome) error {
	actor, err := c.actor(ctx, authz.ObjPost, o.act)
	if err != nil {
		return err
	}

	post, err := c.posts.FindByID(ctx, id)
	if err != nil {
		return apperr.Store(o.act+" post", err)
	}
	if post == nil {
		return apperr.New(apperr.KindNotFound, o.act+" post", "This post no longer exists.")
	}

	next, err := o.transition(*post, actor)
	if err != nil {
		return err
	}

	n, err := c.posts.UpdateStatus(ctx, id, post.Status, next)
	if err != nil {
		return apperr.Store(o.act+" post", err)
	}
	if n == 0 {
		current, err := c.posts.FindByID(ctx, id)
		if err != nil {
			return apperr.Store(o.act+" post", err)
		}
		if current == nil {
			return apperr.New(apperr.KindNotFound, o.act+" post", "This post no longer exists.")
		}
		return apperr.Newf(apperr.KindStaleWrite, o.act+" post",
			"This post is now %s. Reload and try again.", current.Status)
	}

	slog.Info("post moderated", "post_id", id, "action", o.act, "admin_id", actor.UserID,
		"from", post.Status, "to", next.Status)
	return nil
}

// ToggleRestriction flips a user's restriction flag. current is the value
// the admin saw; if the stored flag differs the write is refused.
func (c *Controller) ToggleRestriction(ctx context.Context, userID uuid.UUID, current bool) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	err := c.toggle(ctx, userID, current)
	if err != nil {
		c.notify(ctx, notify.Failure("Failed to update user", err))
		return err
	}

	if current {
		c.notify(ctx, notify.Success("User unrestricted", "They can publish posts again."))
	} else {
		c.notify(ctx, notify.Success("User restricted", "They can no longer create posts."))
	}
	c.refreshUsers(ctx)
	c.loadAll(ctx)
	return nil
}

func (c *Controller) toggle(ctx context.Context, userID uuid.UUID, current bool) error {
	const op = "restrict user"

	actor, err := c.actor(ctx, authz.ObjProfile, authz.ActRestrict)
	if err != nil {
		return err
	}

	n, err := c.profiles.SetRestricted(ctx, userID, current, !current)
	if err != nil {
		return apperr.Store(op, err)
	}
	if n == 0 {
		profile, err := c.profiles.FindByUserID(ctx, userID)
		if err != nil {
			return apperr.Store(op, err)
		}
		if profile == nil {
			return apperr.New(apperr.KindNotFound, op, "This user no longer exists.")
		}
		return apperr.New(apperr.KindStaleWrite, op, "This user was updated by someone else. Reload and try again.")
	}

	slog.Info("user restriction changed", "user_id", userID, "restricted", !current, "admin_id", actor.UserID)
	return nil
}

// PendingCount is the size of the review queue view.
func (c *Controller) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// ReapprovalCount is the number of edited approved posts awaiting review.
func (c *Controller) ReapprovalCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.reapproval)
}

// RestrictedCount is the number of restricted users in the user view.
func (c *Controller) RestrictedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.CountRestricted(c.users)
}

// Snapshot returns a copy of the current views.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		Pending:         append([]models.Post{}, c.pending...),
		Reapproval:      append([]models.Post{}, c.reapproval...),
		All:             append([]models.PostWithAuthor{}, c.all...),
		Users:           append([]models.Profile{}, c.users...),
		PendingCount:    len(c.pending),
		ReapprovalCount: len(c.reapproval),
		RestrictedCount: models.CountRestricted(c.users),
		Busy:            c.busy,
	}
	return s
}
