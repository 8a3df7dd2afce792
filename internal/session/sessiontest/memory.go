// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package sessiontest provides an in-process session store for tests that
// cannot reach Valkey.
package sessiontest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"inkwell/internal/session"
)

// Memory stores sessions and OAuth states in maps. Tokens are issued as
// "tok-1", "tok-2" and so on.
type Memory struct {
	mu     sync.Mutex
	seq    int
	ttl    time.Duration
	tokens map[string]session.Data
	states map[string]string
	fail   error
}

// New returns an empty store with a one hour TTL.
func New() *Memory {
	return &Memory{
		ttl:    time.Hour,
		tokens: make(map[string]session.Data),
		states: make(map[string]string),
	}
}

// Fail makes every later Create and Get return err. A nil err clears it.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

func (m *Memory) Create(ctx context.Context, userID uuid.UUID, email string) (*session.Data, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	m.seq++
	now := time.Now()
	d := session.Data{
		Token:     fmt.Sprintf("tok-%d", m.seq),
		UserID:    userID,
		Email:     email,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}
	m.tokens[d.Token] = d
	return &d, nil
}

func (m *Memory) Get(ctx context.Context, token string) (*session.Data, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	d, ok := m.tokens[token]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (m *Memory) Refresh(ctx context.Context, token string) (*session.Data, error) {
	old, err := m.Get(ctx, token)
	if err != nil || old == nil {
		return nil, err
	}
	fresh, err := m.Create(ctx, old.UserID, old.Email)
	if err != nil {
		return nil, err
	}
	return fresh, m.Destroy(ctx, token)
}

func (m *Memory) Destroy(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
	return nil
}

func (m *Memory) SaveState(ctx context.Context, state, provider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state] = provider
	return nil
}

func (m *Memory) ConsumeState(ctx context.Context, state, provider string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	got, ok := m.states[state]
	delete(m.states, state)
	return ok && got == provider, nil
}
