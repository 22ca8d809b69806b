package model

import (
	"time"
)

type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"` // Not exposed
	Bio            string    `json:"bio"`
	IsAdmin        bool      `json:"is_admin"`
	CreatedAt      time.Time `json:"created_at"`
}

// AuthorSummary is the part of a user attached to posts and comments.
type AuthorSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Bio      string `json:"bio,omitempty"`
}

func (u *User) Summary() AuthorSummary {
	return AuthorSummary{ID: u.ID, Username: u.Username, Bio: u.Bio}
}

type UserFilter struct {
	Search string // case-insensitive substring of username or email
	Limit  int
	Offset int
}
