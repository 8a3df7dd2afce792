// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package notify carries the short success and failure messages that
// controllers emit after each user action.
package notify

import (
	"errors"
	"log/slog"
	"sync"

	"inkwell/internal/apperr"
)

// Level distinguishes success notices from failures.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is one message shown to the user.
type Notice struct {
	Level       Level  `json:"level"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Notifier receives notices.
type Notifier interface {
	Notify(n Notice)
}

// Success builds a success notice.
func Success(title, description string) Notice {
	return Notice{Level: LevelSuccess, Title: title, Description: description}
}

// Failure builds an error notice describing err.
func Failure(title string, err error) Notice {
	n := Notice{Level: LevelError, Title: title}
	if err != nil {
		n.Description = describe(err)
	}
	return n
}

// GenericFailure replaces store failure descriptions, which may carry
// driver details.
const GenericFailure = "Something went wrong. Please try again."

// describe returns the user-facing text of err. Unclassified errors and
// wrapped store failures are logged and replaced by GenericFailure.
func describe(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Message != "" && (ae.Kind != apperr.KindStore || ae.Err == nil) {
		return ae.Message
	}
	slog.Error("action failed", "error", err)
	return GenericFailure
}

// Recorder keeps every notice it receives, in order. It is safe for
// concurrent use.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

// Notify implements Notifier.
func (r *Recorder) Notify(n Notice) {
	if n.Level == LevelError {
		slog.Warn("notice", "title", n.Title, "description", n.Description)
	}
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

// Notices returns a copy of the recorded notices.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Last returns the most recent notice.
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}

// Discard drops every notice.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(Notice) {}
