package model

import (
	"strings"
	"time"
)

// Visibility tiers for posts.
const (
	VisibilityPublic     = "public"
	VisibilityRegistered = "registered"
	VisibilityMember     = "member"
)

// Post is the persisted metadata of a blog article. The body lives in the content store.
// Handlers expose it through their own response types; Tags stays comma-joined here.
type Post struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"size:200;not null"`
	Excerpt     *string   `json:"excerpt" gorm:"size:500"`
	ContentPath string    `json:"content_path" gorm:"size:255;not null"`
	Tags        string    `json:"tags" gorm:"size:255"`
	Slug        *string   `json:"slug" gorm:"uniqueIndex;size:200"`
	Visibility  string    `json:"visibility" gorm:"size:20;not null;default:'registered'"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TagList returns the stored comma-joined tags as a slice.
func (p *Post) TagList() []string {
	return SplitTags(p.Tags)
}

// SetTags normalizes and stores tags.
func (p *Post) SetTags(tags []string) {
	p.Tags = JoinTags(tags)
}

// SplitTags parses "a, b,,c" into [a b c].
func SplitTags(raw string) []string {
	out := []string{}
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// JoinTags trims every tag, drops empties and joins with commas.
func JoinTags(tags []string) string {
	kept := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			kept = append(kept, tag)
		}
	}
	return strings.Join(kept, ",")
}

// ValidVisibility reports whether v is a known tier.
func ValidVisibility(v string) bool {
	switch v {
	case VisibilityPublic, VisibilityRegistered, VisibilityMember:
		return true
	}
	return false
}
