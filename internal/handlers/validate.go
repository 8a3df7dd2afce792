// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Request limits checked before input reaches a controller. Title and
// content limits belong to the post lifecycle.
const (
	maxEmailLen    = 254
	maxPasswordLen = 1_000
	maxTagsLen     = 2_000
)

// validateCredentials checks the size of a sign-in or sign-up body and
// returns the first error found.
func validateCredentials(email, password string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return "Email is required."
	}
	if utf8.RuneCountInString(email) > maxEmailLen {
		return "Email is too long (max 254 characters)."
	}
	if password == "" {
		return "Password is required."
	}
	if len(password) > maxPasswordLen {
		return "Password is too long."
	}
	return ""
}

// validateTags checks the raw comma-separated tag field.
func validateTags(raw string) string {
	if utf8.RuneCountInString(raw) > maxTagsLen {
		return "Tags are too long (max 2,000 characters)."
	}
	return ""
}

// parseLimit reads the optional ?limit parameter. Zero means the feed
// default; larger values are capped by the feed.
func parseLimit(raw string) (int, string) {
	if raw == "" {
		return 0, ""
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, "limit must be a positive integer."
	}
	return n, ""
}
