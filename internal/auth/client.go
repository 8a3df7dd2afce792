// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package auth

import (
	"context"
	"sync"

	"inkwell/internal/apperr"
)

// Event is a session change delivered to listeners.
type Event string

const (
	EventSignedIn       Event = "signed_in"
	EventSignedOut      Event = "signed_out"
	EventTokenRefreshed Event = "token_refreshed"
)

// Listener observes session changes. sess is nil after sign-out.
type Listener func(event Event, sess *Session)

// Client holds the current session of one browser and notifies listeners
// when it changes. It is safe for concurrent use.
type Client struct {
	svc *Service

	mu        sync.Mutex
	current   *Session
	listeners map[int]Listener
	nextID    int
}

// NewClient returns a client bound to svc, starting from current (which
// may be nil).
func NewClient(svc *Service, current *Session) *Client {
	return &Client{svc: svc, current: current, listeners: make(map[int]Listener)}
}

// GetCurrentSession returns the current session, or nil.
func (c *Client) GetCurrentSession() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// OnSessionChange registers fn and returns a function that removes it.
// Calling the returned function more than once is harmless.
func (c *Client) OnSessionChange(fn Listener) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// set swaps the current session and notifies listeners outside the lock,
// so a listener may call back into the client.
func (c *Client) set(event Event, sess *Session) {
	c.mu.Lock()
	c.current = sess
	fns := make([]Listener, 0, len(c.listeners))
	for i := 0; i < c.nextID; i++ {
		if fn, ok := c.listeners[i]; ok {
			fns = append(fns, fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(event, sess)
	}
}

// SignInWithPassword signs in and makes the new session current.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	sess, err := c.svc.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.set(EventSignedIn, sess)
	return sess, nil
}

// SignUpWithPassword registers, signs in and makes the session current.
func (c *Client) SignUpWithPassword(ctx context.Context, email, password string) (*Session, error) {
	sess, err := c.svc.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.set(EventSignedIn, sess)
	return sess, nil
}

// SignInWithOAuth returns the provider URL the browser must visit.
func (c *Client) SignInWithOAuth(ctx context.Context, provider string) (string, error) {
	return c.svc.OAuthURL(ctx, provider)
}

// CompleteOAuth finishes an OAuth sign-in and makes the session current.
func (c *Client) CompleteOAuth(ctx context.Context, provider, state, code string) (*Session, error) {
	sess, err := c.svc.CompleteOAuth(ctx, provider, state, code)
	if err != nil {
		return nil, err
	}
	c.set(EventSignedIn, sess)
	return sess, nil
}

// Refresh rotates the current token.
func (c *Client) Refresh(ctx context.Context) (*Session, error) {
	cur := c.GetCurrentSession()
	if cur == nil {
		return nil, apperr.New(apperr.KindUnauthenticated, "refresh session", "Sign in to continue.")
	}
	sess, err := c.svc.Refresh(ctx, cur.Token)
	if err != nil {
		return nil, err
	}
	c.set(EventTokenRefreshed, sess)
	return sess, nil
}

// SignOut ends the current session. Listeners are notified even when there
// was no session, so every view resets.
func (c *Client) SignOut(ctx context.Context) error {
	if cur := c.GetCurrentSession(); cur != nil {
		if err := c.svc.SignOut(ctx, cur.Token); err != nil {
			return err
		}
	}
	c.set(EventSignedOut, nil)
	return nil
}
