package service

import (
	"context"
	"fmt"
	"strings"

	"blogapi/internal/common"
	"blogapi/internal/domain/model"
	"blogapi/internal/domain/repository"
)

type SearchService struct {
	store *repository.Store
}

func NewSearchService(store *repository.Store) *SearchService {
	return &SearchService{store: store}
}

// SearchResult is the envelope shared by both search endpoints.
type SearchResult[T any] struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
	Data    []T  `json:"data"`
}

func newSearchResult[T any](items []T) *SearchResult[T] {
	if items == nil {
		items = []T{}
	}
	return &SearchResult[T]{Success: true, Count: len(items), Data: items}
}

var errQueryRequired = common.NewValidationError("Search query is required")

// SearchPosts matches query literally, ignoring case, against published posts' title or content.
func (s *SearchService) SearchPosts(ctx context.Context, query string) (*SearchResult[model.Post], error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errQueryRequired
	}
	posts, err := s.store.Posts.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search posts: %w", err)
	}
	if err := attachPostAuthors(ctx, s.store.Users, posts, false); err != nil {
		return nil, err
	}
	return newSearchResult(posts), nil
}

// SearchUsers matches query against usernames and returns users alphabetically.
func (s *SearchService) SearchUsers(ctx context.Context, caller *Identity, query string) (*SearchResult[model.User], error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errQueryRequired
	}
	users, err := s.store.Users.SearchByUsername(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return newSearchResult(users), nil
}
