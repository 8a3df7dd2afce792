// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storetest provides an in-memory implementation of the store
// methods used by the controllers, for tests that must not depend on a
// running PostgreSQL.
package storetest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"inkwell/internal/models"
	"inkwell/internal/store"
)

// Op names a store method for failure injection.
type Op string

const (
	OpQuery            Op = "query"
	OpQueryWithAuthors Op = "query_with_authors"
	OpFindPost         Op = "find_post"
	OpInsert           Op = "insert"
	OpUpdateContent    Op = "update_content"
	OpUpdateStatus     Op = "update_status"
	OpDelete           Op = "delete"
	OpIncrementViews   Op = "increment_views"
	OpFindProfile      Op = "find_profile"
	OpListProfiles     Op = "list_profiles"
	OpSetRestricted    Op = "set_restricted"
	OpRegister         Op = "register"
)

// Memory holds posts, profiles and users behind a single mutex.
type Memory struct {
	mu       sync.Mutex
	posts    map[uuid.UUID]models.Post
	profiles map[uuid.UUID]models.Profile
	users    map[uuid.UUID]models.User
	fail     map[Op]error
	before   map[Op]func()
	clock    time.Time
	calls    map[Op]int
}

// New returns an empty store.
func New() *Memory {
	return &Memory{
		posts:    make(map[uuid.UUID]models.Post),
		profiles: make(map[uuid.UUID]models.Profile),
		users:    make(map[uuid.UUID]models.User),
		fail:     make(map[Op]error),
		before:   make(map[Op]func()),
		calls:    make(map[Op]int),
		clock:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Fail makes every later call of op return err. A nil err clears it.
func (m *Memory) Fail(op Op, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, op)
		return
	}
	m.fail[op] = err
}

// Before registers fn to run, without the lock held, at the start of op.
// Tests use it to interleave a concurrent writer.
func (m *Memory) Before(op Op, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.before[op] = fn
}

// Calls reports how many times op was invoked.
func (m *Memory) Calls(op Op) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *Memory) enter(op Op) error {
	m.mu.Lock()
	fn := m.before[op]
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
	m.mu.Lock()
	m.calls[op]++
	return m.fail[op]
}

// tick advances the fake clock so successive writes order deterministically.
func (m *Memory) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

// AddProfile inserts or replaces a profile.
func (m *Memory) AddProfile(p models.Profile) models.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.UserID == uuid.Nil {
		p.UserID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = m.tick()
	}
	m.profiles[p.UserID] = p
	return p
}

// RemoveProfile deletes a profile, leaving its posts in place.
func (m *Memory) RemoveProfile(userID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.profiles, userID)
}

// PutPost inserts or replaces a post as-is.
func (m *Memory) PutPost(p models.Post) models.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = m.tick()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	m.posts[p.ID] = p.Clone()
	return p
}

// Post returns a copy of the stored post.
func (m *Memory) Post(id uuid.UUID) (models.Post, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	return p.Clone(), ok
}

// Profile returns a copy of the stored profile.
func (m *Memory) Profile(userID uuid.UUID) (models.Profile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	return p, ok
}

func (m *Memory) match(q store.PostQuery) []models.Post {
	var out []models.Post
	for _, p := range m.posts {
		if q.Status != nil && p.Status != *q.Status {
			continue
		}
		if q.UserID != nil && p.UserID != *q.UserID {
			continue
		}
		if q.NeedsReapproval != nil && p.NeedsReapproval != *q.NeedsReapproval {
			continue
		}
		out = append(out, p.Clone())
	}

	key := func(p models.Post) int64 {
		switch q.OrderBy {
		case store.OrderUpdatedAt:
			return p.UpdatedAt.UnixNano()
		case store.OrderViewCount:
			return p.ViewCount
		}
		return p.CreatedAt.UnixNano()
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := key(out[i]), key(out[j])
		if a == b {
			a, b := out[i].ID.String(), out[j].ID.String()
			if q.Ascending {
				return a < b
			}
			return a > b
		}
		if q.Ascending {
			return a < b
		}
		return a > b
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	if out == nil {
		out = []models.Post{}
	}
	return out
}

// Query implements store.PostStore.Query.
func (m *Memory) Query(ctx context.Context, q store.PostQuery) ([]models.Post, error) {
	err := m.enter(OpQuery)
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.match(q), nil
}

// QueryWithAuthors implements store.PostStore.QueryWithAuthors.
func (m *Memory) QueryWithAuthors(ctx context.Context, q store.PostQuery) ([]models.PostWithAuthor, error) {
	err := m.enter(OpQueryWithAuthors)
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	posts := m.match(q)
	out := make([]models.PostWithAuthor, 0, len(posts))
	for _, p := range posts {
		item := models.PostWithAuthor{Post: p}
		if pr, ok := m.profiles[p.UserID]; ok {
			item.AuthorUsername = pr.Username
			item.AuthorDisplayName = pr.DisplayName
			item.AuthorRestricted = pr.IsRestricted
		}
		out = append(out, item)
	}
	return out, nil
}

// FindByID implements store.PostStore.FindByID.
func (m *Memory) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	err := m.enter(OpFindPost)
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	p, ok := m.posts[id]
	if !ok {
		return nil, nil
	}
	out := p.Clone()
	return &out, nil
}

// Insert implements store.PostStore.Insert.
func (m *Memory) Insert(ctx context.Context, p *models.Post) (*models.Post, error) {
	err := m.enter(OpInsert)
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if _, ok := m.profiles[p.UserID]; !ok {
		return nil, errors.New("insert post: owner has no profile")
	}
	out := p.Clone()
	out.ID = uuid.New()
	now := m.tick()
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	if out.UpdatedAt.IsZero() {
		out.UpdatedAt = now
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	m.posts[out.ID] = out.Clone()
	return &out, nil
}

// UpdateContent implements store.PostStore.UpdateContent.
func (m *Memory) UpdateContent(ctx context.Context, id, owner uuid.UUID, from models.PostStatus, p models.Post) (int64, error) {
	err := m.enter(OpUpdateContent)
	defer m.mu.Unlock()
	if err != nil {
		return 0, err
	}
	cur, ok := m.posts[id]
	if !ok || cur.UserID != owner || cur.Status != from {
		return 0, nil
	}
	cur.Title = p.Title
	cur.Content = p.Content
	cur.Excerpt = p.Excerpt
	cur.Tags = append([]string{}, p.Tags...)
	cur.Status = p.Status
	cur.ApprovedBy = p.ApprovedBy
	cur.ApprovedAt = p.ApprovedAt
	cur.NeedsReapproval = p.NeedsReapproval
	if p.UpdatedAt.IsZero() {
		cur.UpdatedAt = m.tick()
	} else {
		cur.UpdatedAt = p.UpdatedAt
	}
	m.posts[id] = cur
	return 1, nil
}

// UpdateStatus implements store.PostStore.UpdateStatus.
func (m *Memory) UpdateStatus(ctx context.Context, id uuid.UUID, from models.PostStatus, p models.Post) (int64, error) {
	err := m.enter(OpUpdateStatus)
	defer m.mu.Unlock()
	if err != nil {
		return 0, err
	}
	cur, ok := m.posts[id]
	if !ok || cur.Status != from {
		return 0, nil
	}
	cur.Status = p.Status
	cur.ApprovedBy = p.ApprovedBy
	cur.ApprovedAt = p.ApprovedAt
	cur.NeedsReapproval = p.NeedsReapproval
	m.posts[id] = cur
	return 1, nil
}

// Delete implements store.PostStore.Delete.
func (m *Memory) Delete(ctx context.Context, id, owner uuid.UUID) (int64, error) {
	err := m.enter(OpDelete)
	defer m.mu.Unlock()
	if err != nil {
		return 0, err
	}
	cur, ok := m.posts[id]
	if !ok || cur.UserID != owner {
		return 0, nil
	}
	delete(m.posts, id)
	return 1, nil
}

// IncrementViews implements store.PostStore.IncrementViews.
func (m *Memory) IncrementViews(ctx context.Context, id uuid.UUID) (bool, error) {
	err := m.enter(OpIncrementViews)
	defer m.mu.Unlock()
	if err != nil {
		return false, err
	}
	cur, ok := m.posts[id]
	if !ok || cur.Status != models.PostStatusApproved {
		return false, nil
	}
	cur.ViewCount++
	m.posts[id] = cur
	return true, nil
}

// FindByUserID implements store.ProfileStore.FindByUserID.
func (m *Memory) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	err := m.enter(OpFindProfile)
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	p, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// List implements store.ProfileStore.List.
func (m *Memory) List(ctx context.Context) ([]models.Profile, error) {
	err := m.enter(OpListProfiles)
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([]models.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].UserID.String() > out[j].UserID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// SetRestricted implements store.ProfileStore.SetRestricted.
func (m *Memory) SetRestricted(ctx context.Context, userID uuid.UUID, expected, value bool) (int64, error) {
	err := m.enter(OpSetRestricted)
	defer m.mu.Unlock()
	if err != nil {
		return 0, err
	}
	p, ok := m.profiles[userID]
	if !ok || p.IsRestricted != expected {
		return 0, nil
	}
	p.IsRestricted = value
	m.profiles[userID] = p
	return 1, nil
}

// Register implements store.UserStore.Register.
func (m *Memory) Register(ctx context.Context, r store.Registration) (*models.User, *models.Profile, error) {
	err := m.enter(OpRegister)
	defer m.mu.Unlock()
	if err != nil {
		return nil, nil, err
	}
	for _, u := range m.users {
		if u.Email == r.Email {
			return nil, nil, store.ErrEmailTaken
		}
	}
	for _, p := range m.profiles {
		if p.Username == r.Username {
			return nil, nil, store.ErrUsernameTaken
		}
	}

	now := m.tick()
	u := models.User{ID: uuid.New(), Email: r.Email, CreatedAt: now, UpdatedAt: now}
	if r.Password != "" {
		// MinCost keeps fake sign-ups fast.
		h, err := bcrypt.GenerateFromPassword([]byte(r.Password), bcrypt.MinCost)
		if err != nil {
			return nil, nil, err
		}
		hs := string(h)
		u.PasswordHash = &hs
	}
	if r.OAuthSubject != "" {
		provider, subject := r.OAuthProvider, r.OAuthSubject
		u.OAuthProvider = &provider
		u.OAuthSubject = &subject
	}
	p := models.Profile{UserID: u.ID, Username: r.Username, DisplayName: r.DisplayName, CreatedAt: now}
	m.users[u.ID] = u
	m.profiles[u.ID] = p
	return &u, &p, nil
}

// FindByEmail implements store.UserStore.FindByEmail.
func (m *Memory) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

// FindByOAuth implements store.UserStore.FindByOAuth.
func (m *Memory) FindByOAuth(ctx context.Context, provider, subject string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.OAuthProvider != nil && *u.OAuthProvider == provider &&
			u.OAuthSubject != nil && *u.OAuthSubject == subject {
			return &u, nil
		}
	}
	return nil, nil
}

// LinkOAuth implements store.UserStore.LinkOAuth.
func (m *Memory) LinkOAuth(ctx context.Context, userID uuid.UUID, provider, subject string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return errors.New("link oauth: user not found")
	}
	u.OAuthProvider = &provider
	u.OAuthSubject = &subject
	m.users[userID] = u
	return nil
}

// CheckPassword implements store.UserStore.CheckPassword.
func (m *Memory) CheckPassword(user *models.User, password string) bool {
	if !user.HasPassword() {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)) == nil
}
