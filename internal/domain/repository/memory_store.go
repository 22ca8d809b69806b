package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"blogapi/internal/common"
	"blogapi/internal/domain/model"
)

// memoryDB holds every record of the in-memory driver behind one lock.
type memoryDB struct {
	mu       sync.RWMutex
	seq      int64
	users    map[string]*memoryRecord[model.User]
	posts    map[string]*memoryRecord[model.Post]
	comments map[string]*memoryRecord[model.Comment]
}

// memoryRecord remembers insertion order so equal timestamps still sort deterministically.
type memoryRecord[T any] struct {
	seq   int64
	value T
}

// NewMemoryStore builds a process-local driver for tests and local runs.
func NewMemoryStore() *Store {
	db := &memoryDB{
		users:    make(map[string]*memoryRecord[model.User]),
		posts:    make(map[string]*memoryRecord[model.Post]),
		comments: make(map[string]*memoryRecord[model.Comment]),
	}
	return &Store{
		Users:    &memoryUserRepository{db: db},
		Posts:    &memoryPostRepository{db: db},
		Comments: &memoryCommentRepository{db: db},
		Tx:       passthroughTx{},
	}
}

func (db *memoryDB) nextSeq() int64 {
	db.seq++
	return db.seq
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

func clonePost(p model.Post) model.Post {
	p.Tags = nonNil(slices.Clone(p.Tags))
	p.Likes = nonNil(slices.Clone(p.Likes))
	p.Author = nil
	return p
}

func cloneComment(c model.Comment) model.Comment {
	c.Likes = nonNil(slices.Clone(c.Likes))
	c.Author = nil
	return c
}

type memoryUserRepository struct {
	db *memoryDB
}

func (r *memoryUserRepository) Create(_ context.Context, user *model.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[user.ID]; ok {
		return fmt.Errorf("user id %s already exists: %w", user.ID, common.ErrConflict)
	}
	if r.takenLocked(user.Username, user.Email, "") {
		return fmt.Errorf("user with given username or email already exists: %w", common.ErrConflict)
	}
	r.db.users[user.ID] = &memoryRecord[model.User]{seq: r.db.nextSeq(), value: *user}
	return nil
}

// takenLocked reports whether another user than exceptID holds username or email.
func (r *memoryUserRepository) takenLocked(username, email, exceptID string) bool {
	for id, rec := range r.db.users {
		if id == exceptID {
			continue
		}
		if rec.value.Username == username || rec.value.Email == email {
			return true
		}
	}
	return false
}

func (r *memoryUserRepository) findFirst(match func(u *model.User) bool) (*model.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, rec := range r.sortedLocked() {
		if match(&rec.value) {
			u := rec.value
			return &u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memoryUserRepository) FindByID(_ context.Context, id string) (*model.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	rec, ok := r.db.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	u := rec.value
	return &u, nil
}

func (r *memoryUserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return r.findFirst(func(u *model.User) bool { return u.Email == email })
}

func (r *memoryUserRepository) FindByUsername(_ context.Context, username string) (*model.User, error) {
	return r.findFirst(func(u *model.User) bool { return u.Username == username })
}

func (r *memoryUserRepository) FindByEmailOrUsername(_ context.Context, email, username string) (*model.User, error) {
	return r.findFirst(func(u *model.User) bool { return u.Email == email || u.Username == username })
}

func (r *memoryUserRepository) Update(_ context.Context, user *model.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rec, ok := r.db.users[user.ID]
	if !ok {
		return common.ErrNotFound
	}
	if r.takenLocked(user.Username, user.Email, user.ID) {
		return fmt.Errorf("username or email already taken: %w", common.ErrConflict)
	}
	created := rec.value.CreatedAt
	rec.value = *user
	rec.value.CreatedAt = created
	return nil
}

func (r *memoryUserRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.db.users, id)
	return nil
}

// sortedLocked returns users newest first.
func (r *memoryUserRepository) sortedLocked() []*memoryRecord[model.User] {
	recs := make([]*memoryRecord[model.User], 0, len(r.db.users))
	for _, rec := range r.db.users {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].value.CreatedAt.Equal(recs[j].value.CreatedAt) {
			return recs[i].value.CreatedAt.After(recs[j].value.CreatedAt)
		}
		return recs[i].seq > recs[j].seq
	})
	return recs
}

func (r *memoryUserRepository) List(_ context.Context, filter model.UserFilter) ([]model.User, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var matched []model.User
	for _, rec := range r.sortedLocked() {
		u := rec.value
		if filter.Search != "" && !containsFold(u.Username, filter.Search) && !containsFold(u.Email, filter.Search) {
			continue
		}
		matched = append(matched, u)
	}
	return paginate(matched, filter.Limit, filter.Offset), len(matched), nil
}

func (r *memoryUserRepository) SearchByUsername(_ context.Context, q string) ([]model.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	users := []model.User{}
	for _, rec := range r.db.users {
		if containsFold(rec.value.Username, q) {
			users = append(users, rec.value)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (r *memoryUserRepository) FindSummaries(_ context.Context, ids []string) (map[string]model.AuthorSummary, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	summaries := make(map[string]model.AuthorSummary, len(ids))
	for _, id := range ids {
		if rec, ok := r.db.users[id]; ok {
			summaries[id] = rec.value.Summary()
		}
	}
	return summaries, nil
}

type memoryPostRepository struct {
	db *memoryDB
}

func (r *memoryPostRepository) Create(_ context.Context, p *model.Post) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.posts[p.ID]; ok {
		return fmt.Errorf("post id %s already exists: %w", p.ID, common.ErrConflict)
	}
	r.db.posts[p.ID] = &memoryRecord[model.Post]{seq: r.db.nextSeq(), value: clonePost(*p)}
	return nil
}

func (r *memoryPostRepository) FindByID(_ context.Context, id string) (*model.Post, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	rec, ok := r.db.posts[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	p := clonePost(rec.value)
	return &p, nil
}

func (r *memoryPostRepository) Update(_ context.Context, p *model.Post) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rec, ok := r.db.posts[p.ID]
	if !ok {
		return common.ErrNotFound
	}
	rec.value.Title = p.Title
	rec.value.Slug = p.Slug
	rec.value.Content = p.Content
	rec.value.Tags = nonNil(slices.Clone(p.Tags))
	rec.value.Published = p.Published
	rec.value.UpdatedAt = p.UpdatedAt
	return nil
}

func (r *memoryPostRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.posts[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.db.posts, id)
	return nil
}

// matchingLocked returns the posts accepted by keep, newest first.
func (r *memoryPostRepository) matchingLocked(keep func(p *model.Post) bool) []model.Post {
	recs := make([]*memoryRecord[model.Post], 0, len(r.db.posts))
	for _, rec := range r.db.posts {
		if keep(&rec.value) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].value.CreatedAt.Equal(recs[j].value.CreatedAt) {
			return recs[i].value.CreatedAt.After(recs[j].value.CreatedAt)
		}
		return recs[i].seq > recs[j].seq
	})
	posts := make([]model.Post, 0, len(recs))
	for _, rec := range recs {
		posts = append(posts, clonePost(rec.value))
	}
	return posts
}

func (r *memoryPostRepository) List(_ context.Context, filter model.PostFilter) ([]model.Post, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	matched := r.matchingLocked(func(p *model.Post) bool {
		if filter.PublishedOnly && !p.Published {
			return false
		}
		if filter.Tag != "" && !slices.Contains(p.Tags, filter.Tag) {
			return false
		}
		return filter.AuthorID == "" || p.AuthorID == filter.AuthorID
	})
	return paginate(matched, filter.Limit, filter.Offset), len(matched), nil
}

func (r *memoryPostRepository) Search(_ context.Context, q string) ([]model.Post, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return r.matchingLocked(func(p *model.Post) bool {
		return p.Published && (containsFold(p.Title, q) || containsFold(p.Content, q))
	}), nil
}

func (r *memoryPostRepository) ListIDsByAuthor(_ context.Context, authorID string) ([]string, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	ids := []string{}
	for id, rec := range r.db.posts {
		if rec.value.AuthorID == authorID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *memoryPostRepository) DeleteByAuthor(_ context.Context, authorID string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for id, rec := range r.db.posts {
		if rec.value.AuthorID == authorID {
			delete(r.db.posts, id)
			n++
		}
	}
	return n, nil
}

func (r *memoryPostRepository) CountByAuthor(_ context.Context, authorID string) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	n := 0
	for _, rec := range r.db.posts {
		if rec.value.AuthorID == authorID {
			n++
		}
	}
	return n, nil
}

func (r *memoryPostRepository) AddLike(_ context.Context, postID, userID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rec, ok := r.db.posts[postID]
	if !ok {
		return common.ErrNotFound
	}
	if slices.Contains(rec.value.Likes, userID) {
		return common.ErrAlreadyLiked
	}
	rec.value.Likes = append(rec.value.Likes, userID)
	return nil
}

func (r *memoryPostRepository) RemoveLike(_ context.Context, postID, userID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rec, ok := r.db.posts[postID]
	if !ok {
		return common.ErrNotFound
	}
	i := slices.Index(rec.value.Likes, userID)
	if i < 0 {
		return common.ErrNotLiked
	}
	rec.value.Likes = slices.Delete(rec.value.Likes, i, i+1)
	return nil
}

type memoryCommentRepository struct {
	db *memoryDB
}

func (r *memoryCommentRepository) Create(_ context.Context, c *model.Comment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.comments[c.ID]; ok {
		return fmt.Errorf("comment id %s already exists: %w", c.ID, common.ErrConflict)
	}
	r.db.comments[c.ID] = &memoryRecord[model.Comment]{seq: r.db.nextSeq(), value: cloneComment(*c)}
	return nil
}

func (r *memoryCommentRepository) FindByID(_ context.Context, id string) (*model.Comment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	rec, ok := r.db.comments[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	c := cloneComment(rec.value)
	return &c, nil
}

func (r *memoryCommentRepository) UpdateContent(_ context.Context, id, content string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rec, ok := r.db.comments[id]
	if !ok {
		return common.ErrNotFound
	}
	rec.value.Content = content
	return nil
}

func (r *memoryCommentRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.comments[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.db.comments, id)
	return nil
}

func (r *memoryCommentRepository) ListByPost(_ context.Context, postID string, limit, offset int) ([]model.Comment, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	recs := make([]*memoryRecord[model.Comment], 0)
	for _, rec := range r.db.comments {
		if rec.value.PostID == postID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].value.CreatedAt.Equal(recs[j].value.CreatedAt) {
			return recs[i].value.CreatedAt.After(recs[j].value.CreatedAt)
		}
		return recs[i].seq > recs[j].seq
	})
	comments := make([]model.Comment, 0, len(recs))
	for _, rec := range recs {
		comments = append(comments, cloneComment(rec.value))
	}
	return paginate(comments, limit, offset), len(comments), nil
}

func (r *memoryCommentRepository) deleteWhere(match func(c *model.Comment) bool) int64 {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for id, rec := range r.db.comments {
		if match(&rec.value) {
			delete(r.db.comments, id)
			n++
		}
	}
	return n
}

func (r *memoryCommentRepository) DeleteByPost(_ context.Context, postID string) (int64, error) {
	return r.deleteWhere(func(c *model.Comment) bool { return c.PostID == postID }), nil
}

func (r *memoryCommentRepository) DeleteByPosts(_ context.Context, postIDs []string) (int64, error) {
	return r.deleteWhere(func(c *model.Comment) bool { return slices.Contains(postIDs, c.PostID) }), nil
}

func (r *memoryCommentRepository) DeleteByAuthor(_ context.Context, authorID string) (int64, error) {
	return r.deleteWhere(func(c *model.Comment) bool { return c.AuthorID == authorID }), nil
}

func (r *memoryCommentRepository) CountByAuthor(_ context.Context, authorID string) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	n := 0
	for _, rec := range r.db.comments {
		if rec.value.AuthorID == authorID {
			n++
		}
	}
	return n, nil
}

func (r *memoryCommentRepository) AddLike(_ context.Context, commentID, userID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rec, ok := r.db.comments[commentID]
	if !ok {
		return common.ErrNotFound
	}
	if slices.Contains(rec.value.Likes, userID) {
		return common.ErrAlreadyLiked
	}
	rec.value.Likes = append(rec.value.Likes, userID)
	return nil
}

func (r *memoryCommentRepository) RemoveLike(_ context.Context, commentID, userID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rec, ok := r.db.comments[commentID]
	if !ok {
		return common.ErrNotFound
	}
	i := slices.Index(rec.value.Likes, userID)
	if i < 0 {
		return common.ErrNotLiked
	}
	rec.value.Likes = slices.Delete(rec.value.Likes, i, i+1)
	return nil
}
