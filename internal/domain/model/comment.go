package model

import (
	"slices"
	"time"
)

type Comment struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	PostID    string         `json:"post"`
	AuthorID  string         `json:"-"`
	Author    *AuthorSummary `json:"author,omitempty"`
	Likes     []string       `json:"likes"`
	CreatedAt time.Time      `json:"created_at"`
}

func (c *Comment) LikedBy(userID string) bool {
	return slices.Contains(c.Likes, userID)
}
