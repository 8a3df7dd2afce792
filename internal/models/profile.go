// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the public identity record attached 1:1 to a user. Its flags
// decide the capability set of the session that owns it.
type Profile struct {
	UserID       uuid.UUID `json:"user_id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	IsAdmin      bool      `json:"is_admin"`
	IsRestricted bool      `json:"is_restricted"`
	CreatedAt    time.Time `json:"created_at"`
}

// Name returns the display name, falling back to the username.
func (p *Profile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if p.Username != "" {
		return p.Username
	}
	return "Unknown User"
}

// CountRestricted returns how many profiles carry the restriction flag.
func CountRestricted(profiles []Profile) int {
	n := 0
	for _, p := range profiles {
		if p.IsRestricted {
			n++
		}
	}
	return n
}
