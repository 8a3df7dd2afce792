// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package workspace implements the author's own area: the list of their
// posts, the create/edit form and the dashboard counters.
package workspace

import (
	"context"
	"errors"
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

// Posts is the post store as seen by authors.
type Posts interface {
	Query(ctx context.Context, q store.PostQuery) ([]models.Post, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	Insert(ctx context.Context, p *models.Post) (*models.Post, error)
	UpdateContent(ctx context.Context, id, owner uuid.UUID, from models.PostStatus, p models.Post) (int64, error)
	Delete(ctx context.Context, id, owner uuid.UUID) (int64, error)
}

// Profiles resolves the author's capability set.
type Profiles interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

// Sessions is the session provider view a controller needs.
// *auth.Client implements it.
type Sessions interface {
	GetCurrentSession() *auth.Session
	OnSessionChange(fn auth.Listener) (unsubscribe func())
}

// ErrClosed is returned by actions started after Close.
var ErrClosed = apperr.New(apperr.KindBusy, "workspace", "This view is no longer active.")

// Form is the create/edit form. A nil EditingID means a new post.
type Form struct {
	EditingID *uuid.UUID `json:"editing_id,omitempty"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Tags      string     `json:"tags"`
}

// Snapshot is the view state rendered to the author.
type Snapshot struct {
	Posts      []models.Post      `json:"posts"`
	Form       Form               `json:"form"`
	Stats      models.AuthorStats `json:"stats"`
	Submitting bool               `json:"submitting"`
}

// Controller is request scoped. One submission may be in flight at a time.
type Controller struct {
	posts    Posts
	profiles Profiles
	engine   *lifecycle.Engine
	notifier notify.Notifier
	sessions Sessions

	unsubscribe func()

	mu         sync.Mutex
	submitting bool
	closed     bool
	mine       []models.Post
	form       Form
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
	c.mine = nil
	c.form = Form{}
	c.mu.Unlock()
}

func (c *Controller) actor(ctx context.Context, act string) (authz.Actor, error) {
	sess := c.sessions.GetCurrentSession()
	if sess == nil {
		return authz.Actor{}, c.engine.Require(authz.Actor{Capability: authz.Anonymous}, authz.ObjPost, act)
	}
	profile, err := c.profiles.FindByUserID(ctx, sess.UserID)
	if err != nil {
		return authz.Actor{}, apperr.Store("load profile", err)
	}
	return authz.Resolve(sess.UserID, profile), nil
}

// Open requires a session and loads the author's posts.
func (c *Controller) Open(ctx context.Context) error {
	_, err := c.ListMine(ctx)
	return err
}

// ListMine loads the caller's posts, most recently edited first.
func (c *Controller) ListMine(ctx context.Context) ([]models.Post, error) {
	actor, err := c.actor(ctx, authz.ActListOwn)
	if err != nil {
		return nil, err
	}
	if err := c.engine.Require(actor, authz.ObjPost, authz.ActListOwn); err != nil {
		return nil, err
	}
	return c.loadMine(ctx, actor)
}

func (c *Controller) loadMine(ctx context.Context, actor authz.Actor) ([]models.Post, error) {
	posts, err := c.posts.Query(ctx, store.Newest(store.OrderUpdatedAt).WithOwner(actor.UserID))
	if err != nil {
		err = apperr.Store("list my posts", err)
		c.notify(ctx, notify.Failure("Failed to load posts", err))
		return nil, err
	}
	c.apply(ctx, func() { c.mine = posts })
	return posts, nil
}

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
	if c.submitting {
		return apperr.New(apperr.KindBusy, "workspace", "Your previous change is still being saved.")
	}
	c.submitting = true
	return nil
}

func (c *Controller) end() {
	c.mu.Lock()
	c.submitting = false
	c.mu.Unlock()
}

// CreatePost submits a new post for review.
func (c *Controller) CreatePost(ctx context.Context, title, content, rawTags string) (*models.Post, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()
	return c.create(ctx, title, content, rawTags)
}

func (c *Controller) create(ctx context.Context, title, content, rawTags string) (*models.Post, error) {
	actor, created, err := c.insert(ctx, lifecycle.Normalize(title, content, rawTags))
	if err != nil {
		c.notify(ctx, notify.Failure("Create failed", err))
		return nil, err
	}
	c.notify(ctx, notify.Success("Submitted for review", "An admin will approve your post."))
	c.loadMine(ctx, actor)
	return created, nil
}

func (c *Controller) insert(ctx context.Context, d lifecycle.Draft) (authz.Actor, *models.Post, error) {
	actor, err := c.actor(ctx, authz.ActCreate)
	if err != nil {
		return actor, nil, err
	}
	post, err := c.engine.Create(actor, d)
	if err != nil {
		if actor.Capability == authz.Restricted && errors.Is(err, apperr.ErrPermissionDenied) {
			err = apperr.New(apperr.KindPermissionDenied, "create post", "Your account is restricted and cannot create posts.")
		}
		return actor, nil, err
	}
	created, err := c.posts.Insert(ctx, &post)
	if err != nil {
		return actor, nil, apperr.Store("create post", err)
	}
	slog.Info("post submitted", "post_id", created.ID, "user_id", actor.UserID)
	return actor, created, nil
}

// UpdatePost saves an author edit. The status change, if any, follows the
// engine's edit policy.
func (c *Controller) UpdatePost(ctx context.Context, id uuid.UUID, title, content, rawTags string) (*models.Post, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()
	return c.update(ctx, id, title, content, rawTags)
}

func (c *Controller) update(ctx context.Context, id uuid.UUID, title, content, rawTags string) (*models.Post, error) {
	actor, before, after, err := c.edit(ctx, id, lifecycle.Normalize(title, content, rawTags))
	if err != nil {
		c.notify(ctx, notify.Failure("Update failed", err))
		return nil, err
	}

	desc := ""
	if after.Status == models.PostStatusPending && before.Status != models.PostStatusPending {
		desc = "Your post was sent back for review."
	} else if after.NeedsReapproval {
		desc = "Your changes are live. An admin may review them again."
	}
	c.notify(ctx, notify.Success("Post updated", desc))
	c.loadMine(ctx, actor)
	return after, nil
}

func (c *Controller) edit(ctx context.Context, id uuid.UUID, d lifecycle.Draft) (authz.Actor, *models.Post, *models.Post, error) {
	const op = "update post"

	actor, err := c.actor(ctx, authz.ActEdit)
	if err != nil {
		return actor, nil, nil, err
	}
	if err := c.engine.Require(actor, authz.ObjPost, authz.ActEdit); err != nil {
		return actor, nil, nil, err
	}

	post, err := c.posts.FindByID(ctx, id)
	if err != nil {
		return actor, nil, nil, apperr.Store(op, err)
	}
	if post == nil {
		return actor, nil, nil, apperr.New(apperr.KindNotFound, op, "This post no longer exists.")
	}

	next, err := c.engine.Edit(*post, actor, d)
	if err != nil {
		return actor, nil, nil, err
	}

	n, err := c.posts.UpdateContent(ctx, id, actor.UserID, post.Status, next)
	if err != nil {
		return actor, nil, nil, apperr.Store(op, err)
	}
	if n == 0 {
		return actor, nil, nil, c.explainMiss(ctx, op, id, actor, func(current *models.Post) error {
			return apperr.Newf(apperr.KindStaleWrite, op,
				"This post is now %s. Reload and try again.", current.Status)
		})
	}

	slog.Info("post updated", "post_id", id, "user_id", actor.UserID, "from", post.Status, "to", next.Status)
	return actor, post, &next, nil
}

// explainMiss re-reads a post after an owner-filtered write affected no
// rows. An owned post that still exists is reported by owned.
func (c *Controller) explainMiss(ctx context.Context, op string, id uuid.UUID, actor authz.Actor, owned func(*models.Post) error) error {
	current, err := c.posts.FindByID(ctx, id)
	if err != nil {
		return apperr.Store(op, err)
	}
	if current == nil {
		return apperr.New(apperr.KindNotFound, op, "This post no longer exists.")
	}
	if !current.IsOwnedBy(actor.UserID) {
		return apperr.New(apperr.KindPermissionDenied, op, "Only the author can change this post.")
	}
	return owned(current)
}

// DeletePost removes one of the caller's posts, whatever its status.
func (c *Controller) DeletePost(ctx context.Context, id uuid.UUID) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	actor, err := c.remove(ctx, id)
	if err != nil {
		c.notify(ctx, notify.Failure("Delete failed", err))
		return err
	}
	c.notify(ctx, notify.Success("Post deleted", ""))
	c.apply(ctx, func() {
		if c.form.EditingID != nil && *c.form.EditingID == id {
			c.form = Form{}
		}
	})
	c.loadMine(ctx, actor)
	return nil
}

func (c *Controller) remove(ctx context.Context, id uuid.UUID) (authz.Actor, error) {
	const op = "delete post"

	actor, err := c.actor(ctx, authz.ActDelete)
	if err != nil {
		return actor, err
	}
	post, err := c.posts.FindByID(ctx, id)
	if err != nil {
		return actor, apperr.Store(op, err)
	}
	if post == nil {
		return actor, apperr.New(apperr.KindNotFound, op, "This post no longer exists.")
	}
	if err := c.engine.CheckDelete(*post, actor); err != nil {
		return actor, err
	}

	n, err := c.posts.Delete(ctx, id, actor.UserID)
	if err != nil {
		return actor, apperr.Store(op, err)
	}
	if n == 0 {
		return actor, c.explainMiss(ctx, op, id, actor, func(*models.Post) error {
			return apperr.New(apperr.KindStaleWrite, op, "This post changed while deleting. Try again.")
		})
	}

	slog.Info("post deleted", "post_id", id, "user_id", actor.UserID)
	return actor, nil
}

// Submit saves form as a new post or as an edit of form.EditingID. The
// form is cleared on success and kept on failure.
func (c *Controller) Submit(ctx context.Context, form Form) (*models.Post, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	c.apply(ctx, func() { c.form = form })

	var (
		post *models.Post
		err  error
	)
	if form.EditingID != nil {
		post, err = c.update(ctx, *form.EditingID, form.Title, form.Content, form.Tags)
	} else {
		post, err = c.create(ctx, form.Title, form.Content, form.Tags)
	}
	if err != nil {
		return nil, err
	}
	c.apply(ctx, func() { c.form = Form{} })
	return post, nil
}

// LoadForEdit replaces the form with the stored post.
func (c *Controller) LoadForEdit(ctx context.Context, id uuid.UUID) (Form, error) {
	const op = "edit post"

	actor, err := c.actor(ctx, authz.ActEdit)
	if err != nil {
		return Form{}, err
	}
	if err := c.engine.Require(actor, authz.ObjPost, authz.ActEdit); err != nil {
		return Form{}, err
	}
	post, err := c.posts.FindByID(ctx, id)
	if err != nil {
		return Form{}, apperr.Store(op, err)
	}
	if post == nil {
		return Form{}, apperr.New(apperr.KindNotFound, op, "This post no longer exists.")
	}
	if !post.IsOwnedBy(actor.UserID) {
		return Form{}, apperr.New(apperr.KindPermissionDenied, op, "Only the author can edit this post.")
	}

	editing := post.ID
	form := Form{
		EditingID: &editing,
		Title:     post.Title,
		Content:   post.Content,
		Tags:      lifecycle.JoinTags(post.Tags),
	}
	c.apply(ctx, func() { c.form = form })
	return form, nil
}

// ResetForm clears the form.
func (c *Controller) ResetForm() {
	c.mu.Lock()
	c.form = Form{}
	c.mu.Unlock()
}

// Dashboard loads the caller's posts and returns their counters.
func (c *Controller) Dashboard(ctx context.Context) (models.AuthorStats, error) {
	actor, err := c.actor(ctx, authz.ActRead)
	if err != nil {
		return models.AuthorStats{}, err
	}
	if actor.IsAnonymous() {
		return models.AuthorStats{}, apperr.New(apperr.KindUnauthenticated, "dashboard", "Sign in to continue.")
	}
	if err := c.engine.Require(actor, authz.ObjDashboard, authz.ActRead); err != nil {
		return models.AuthorStats{}, err
	}
	posts, err := c.loadMine(ctx, actor)
	if err != nil {
		return models.AuthorStats{}, err
	}
	return models.StatsFor(posts), nil
}

// Snapshot returns a copy of the current view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Posts:      append([]models.Post{}, c.mine...),
		Form:       c.form,
		Stats:      models.StatsFor(c.mine),
		Submitting: c.submitting,
	}
}
