package model

import (
	"slices"
	"time"
)

type Post struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Slug      string         `json:"slug"`
	Content   string         `json:"content"`
	AuthorID  string         `json:"-"`
	Author    *AuthorSummary `json:"author,omitempty"`
	Tags      []string       `json:"tags"`
	Likes     []string       `json:"likes"`
	Published bool           `json:"published"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (p *Post) LikedBy(userID string) bool {
	return slices.Contains(p.Likes, userID)
}

// PostPreview is the trimmed view of a post shown on a profile.
type PostPreview struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (p *Post) Preview() PostPreview {
	return PostPreview{ID: p.ID, Title: p.Title, Content: p.Content, CreatedAt: p.CreatedAt}
}

// PostFilter selects posts for listing. Results are always newest first.
type PostFilter struct {
	Tag           string
	AuthorID      string
	PublishedOnly bool
	Limit         int
	Offset        int
}
