package service

import "blogapi/internal/domain/model"

const (
	DefaultPostPageSize    = 10
	DefaultCommentPageSize = 20
	DefaultUserPageSize    = 10
	MaxPageSize            = 100
)

// newPage applies defaults to raw page/limit values; non-positive values fall back.
func newPage(page, limit, defaultLimit int) model.Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return model.Page{Number: page, Limit: limit}
}
