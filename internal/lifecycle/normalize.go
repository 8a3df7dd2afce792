// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package lifecycle

import (
	"strings"
	"unicode/utf8"

	"inkwell/internal/apperr"
)

// Field limits and derived-field sizes.
const (
	ExcerptLen     = 160
	CharsPerMinute = 200

	maxTitleLen      = 300
	maxContentLen    = 100_000
	tagSeparator     = ","
	tagJoinSeparator = ", "
)

// Draft is the author-supplied part of a post after normalization.
type Draft struct {
	Title   string
	Content string
	Excerpt string
	Tags    []string
}

// Normalize trims the title and tag entries, drops empty tags and
// recomputes the excerpt from content. Tag order and duplicates are kept.
func Normalize(title, content, rawTags string) Draft {
	return Draft{
		Title:   strings.TrimSpace(title),
		Content: content,
		Excerpt: Excerpt(content),
		Tags:    ParseTags(rawTags),
	}
}

// ParseTags splits comma-separated input into trimmed, non-empty entries.
func ParseTags(raw string) []string {
	tags := []string{}
	for _, t := range strings.Split(raw, tagSeparator) {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// JoinTags renders tags back into the edit form's text field.
func JoinTags(tags []string) string {
	return strings.Join(tags, tagJoinSeparator)
}

// Excerpt returns the first ExcerptLen characters of content. It counts
// runes, not words, so the cut may land mid-word.
func Excerpt(content string) string {
	if utf8.RuneCountInString(content) <= ExcerptLen {
		return content
	}
	n := 0
	for i := range content {
		if n == ExcerptLen {
			return content[:i]
		}
		n++
	}
	return content
}

// ReadTimeMinutes estimates reading time at CharsPerMinute, rounded up.
func ReadTimeMinutes(content string) int {
	n := utf8.RuneCountInString(content)
	return (n + CharsPerMinute - 1) / CharsPerMinute
}

// Validate checks the required fields of a normalized draft.
func Validate(d Draft) error {
	if d.Title == "" {
		return apperr.New(apperr.KindValidation, "validate post", "Title is required.")
	}
	if utf8.RuneCountInString(d.Title) > maxTitleLen {
		return apperr.New(apperr.KindValidation, "validate post", "Title is too long (max 300 characters).")
	}
	if strings.TrimSpace(d.Content) == "" {
		return apperr.New(apperr.KindValidation, "validate post", "Content is required.")
	}
	if utf8.RuneCountInString(d.Content) > maxContentLen {
		return apperr.New(apperr.KindValidation, "validate post", "Content is too long (max 100,000 characters).")
	}
	return nil
}
