package lifecycle

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"inkwell/internal/apperr"
)

func TestNormalize(t *testing.T) {
	content := strings.Repeat("x", 300)
	d := Normalize("  A  ", content, "a, ,b ,a")

	if d.Title != "A" {
		t.Errorf("title: got %q, want %q", d.Title, "A")
	}
	if want := []string{"a", "b", "a"}; !reflect.DeepEqual(d.Tags, want) {
		t.Errorf("tags: got %q, want %q", d.Tags, want)
	}
	if d.Excerpt != content[:160] {
		t.Errorf("excerpt length: got %d, want 160", len(d.Excerpt))
	}
	if d.Content != content {
		t.Error("content must not be altered")
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []struct{ title, content, tags string }{
		{"  A  ", strings.Repeat("x", 300), "a, ,b ,a"},
		{"Hello", "short", ""},
		{"Ünïcode", strings.Repeat("é", 200), " go ,  rust,,"},
	}

	for _, in := range inputs {
		first := Normalize(in.title, in.content, in.tags)
		second := Normalize(first.Title, first.Content, JoinTags(first.Tags))
		if !reflect.DeepEqual(first, second) {
			t.Errorf("not idempotent:\nfirst  %+v\nsecond %+v", first, second)
		}
	}
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"", []string{}},
		{" , ,", []string{}},
		{"x, y", []string{"x", "y"}},
		{"Go,go", []string{"Go", "go"}},
		{"  spaced tag  ,next", []string{"spaced tag", "next"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := ParseTags(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseTags(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestJoinTags(t *testing.T) {
	if got := JoinTags([]string{"x", "y", "z"}); got != "x, y, z" {
		t.Errorf("got %q", got)
	}
	if got := JoinTags(nil); got != "" {
		t.Errorf("got %q for nil", got)
	}
}

func TestExcerptCountsRunes(t *testing.T) {
	content := strings.Repeat("ж", 170)
	got := Excerpt(content)
	if n := len([]rune(got)); n != ExcerptLen {
		t.Errorf("rune count: got %d, want %d", n, ExcerptLen)
	}
	if Excerpt("short") != "short" {
		t.Error("short content should be returned whole")
	}
	exact := strings.Repeat("a", ExcerptLen)
	if Excerpt(exact) != exact {
		t.Error("content of exactly ExcerptLen should be returned whole")
	}
}

func TestReadTimeMinutes(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 0},
		{1, 1},
		{200, 1},
		{201, 2},
		{1000, 5},
	}
	for _, tt := range tests {
		if got := ReadTimeMinutes(strings.Repeat("a", tt.n)); got != tt.want {
			t.Errorf("ReadTimeMinutes(%d chars) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		draft   Draft
		wantErr bool
	}{
		{name: "valid", draft: Draft{Title: "T", Content: "C"}},
		{name: "empty title", draft: Draft{Title: "", Content: "C"}, wantErr: true},
		{name: "blank content", draft: Draft{Title: "T", Content: "   "}, wantErr: true},
		{name: "long title", draft: Draft{Title: strings.Repeat("t", 301), Content: "C"}, wantErr: true},
		{name: "long content", draft: Draft{Title: "T", Content: strings.Repeat("c", 100_001)}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.draft)
			if tt.wantErr {
				if !errors.Is(err, apperr.ErrValidation) {
					t.Errorf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
