package service

import "blogapi/internal/domain/model"

// An unpublished post, and every comment on it, is visible to the post's author only.
// Hidden content is reported as not found so its existence is not disclosed.

func postVisibleTo(post *model.Post, viewer *Identity) bool {
	if post.Published {
		return true
	}
	return viewer != nil && viewer.UserID == post.AuthorID
}

// commentsOpen reports whether the comments of post may be listed, created or liked.
// Those operations ignore authorship: an unpublished post has no public comment thread.
func commentsOpen(post *model.Post) bool {
	return post != nil && post.Published
}
