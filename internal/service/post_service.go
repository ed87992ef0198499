package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"maiblog/internal/auth"
	"maiblog/internal/cache"
	"maiblog/internal/content"
	apperrors "maiblog/internal/errors"
	"maiblog/internal/model"
	"maiblog/internal/repository"
)

const (
	postCacheTTL     = 5 * time.Minute
	postListCacheKey = "posts:list"
)

// PostDetail is a post with its full markdown body.
type PostDetail struct {
	Post    *model.Post
	Content string
}

// PostInput carries fields for creating a post. Content, when set, is written to the store.
type PostInput struct {
	Title       string
	Excerpt     *string
	ContentPath string
	Content     string
	Tags        []string
	Slug        *string
	Visibility  string
}

// PostPatch carries optional fields for a partial update.
type PostPatch struct {
	Title       *string
	Excerpt     *string
	ContentPath *string
	Content     *string
	Tags        []string
	Slug        *string
	Visibility  *string
}

// PostService exposes post listing, gated reads and admin writes.
type PostService interface {
	List(ctx context.Context) ([]model.Post, error)
	GetByID(ctx context.Context, id uint, caller *model.User) (*PostDetail, error)
	GetBySlug(ctx context.Context, slug string, caller *model.User) (*PostDetail, error)
	Create(ctx context.Context, in PostInput) (*model.Post, error)
	Update(ctx context.Context, id uint, patch PostPatch) (*model.Post, error)
	Delete(ctx context.Context, id uint) error
	DeleteBySlug(ctx context.Context, slug string) error
	DeleteAll(ctx context.Context) (int64, error)
}

type postService struct {
	repo   repository.PostRepository
	store  content.Store
	gate   *auth.Gate
	cache  *cache.Client
	logger *zap.Logger
}

// NewPostService builds a PostService. cache may be nil.
func NewPostService(repo repository.PostRepository, store content.Store, gate *auth.Gate, cache *cache.Client, logger *zap.Logger) PostService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postService{repo: repo, store: store, gate: gate, cache: cache, logger: logger}
}

func idCacheKey(id uint) string {
	return fmt.Sprintf("post:id:%d", id)
}

func slugCacheKey(slug string) string {
	return fmt.Sprintf("post:slug:%s", slug)
}

// List returns post metadata, newest first.
func (s *postService) List(ctx context.Context) ([]model.Post, error) {
	var posts []model.Post
	if s.cache.GetJSON(ctx, postListCacheKey, &posts) {
		return posts, nil
	}

	posts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	s.cache.SetJSON(ctx, postListCacheKey, posts, postCacheTTL)
	return posts, nil
}

// GetByID returns a post and its body if caller may read it.
func (s *postService) GetByID(ctx context.Context, id uint, caller *model.User) (*PostDetail, error) {
	post, err := s.cachedLookup(ctx, idCacheKey(id), func() (*model.Post, error) {
		return s.repo.FindByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return s.gated(ctx, post, caller)
}

// GetBySlug returns a post and its body if caller may read it.
func (s *postService) GetBySlug(ctx context.Context, slug string, caller *model.User) (*PostDetail, error) {
	post, err := s.cachedLookup(ctx, slugCacheKey(slug), func() (*model.Post, error) {
		return s.repo.FindBySlug(ctx, slug)
	})
	if err != nil {
		return nil, err
	}
	return s.gated(ctx, post, caller)
}

func (s *postService) cachedLookup(ctx context.Context, key string, load func() (*model.Post, error)) (*model.Post, error) {
	var cached model.Post
	if s.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	post, err := load()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPostNotFound
		}
		return nil, fmt.Errorf("find post: %w", err)
	}
	s.cache.SetJSON(ctx, key, post, postCacheTTL)
	return post, nil
}

// gated applies the visibility gate before touching the content store.
func (s *postService) gated(ctx context.Context, post *model.Post, caller *model.User) (*PostDetail, error) {
	if decision := s.gate.Evaluate(post.Visibility, caller); !decision.Allowed {
		return nil, decision.Reason
	}

	body, err := s.store.Read(ctx, post.ContentPath)
	if err != nil {
		if errors.Is(err, apperrors.ErrContentMissing) {
			s.logger.Error("post content missing",
				zap.Uint("post_id", post.ID),
				zap.String("content_path", post.ContentPath),
			)
		}
		return nil, err
	}
	return &PostDetail{Post: post, Content: body}, nil
}

// Create stores a new post. Missing visibility defaults to registered.
func (s *postService) Create(ctx context.Context, in PostInput) (*model.Post, error) {
	post := &model.Post{
		Title:       strings.TrimSpace(in.Title),
		Excerpt:     in.Excerpt,
		ContentPath: strings.TrimSpace(in.ContentPath),
		Slug:        normalizeSlug(in.Slug),
		Visibility:  in.Visibility,
	}
	post.SetTags(in.Tags)
	if post.Visibility == "" {
		post.Visibility = model.VisibilityRegistered
	}
	if post.ContentPath == "" && post.Slug != nil && in.Content != "" {
		post.ContentPath = *post.Slug + ".md"
	}

	if err := validatePost(post); err != nil {
		return nil, err
	}
	if err := s.ensureSlugFree(ctx, post.Slug, 0); err != nil {
		return nil, err
	}
	if in.Content != "" {
		if err := s.store.Write(ctx, post.ContentPath, in.Content); err != nil {
			return nil, fmt.Errorf("write content: %w", err)
		}
	}

	if err := s.repo.Create(ctx, post); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrSlugTaken
		}
		return nil, fmt.Errorf("create post: %w", err)
	}
	s.invalidate(ctx, post, nil)
	return post, nil
}

// Update applies patch to the post with id.
func (s *postService) Update(ctx context.Context, id uint, patch PostPatch) (*model.Post, error) {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPostNotFound
		}
		return nil, fmt.Errorf("find post: %w", err)
	}
	previousSlug := post.Slug

	if patch.Title != nil {
		post.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Excerpt != nil {
		post.Excerpt = patch.Excerpt
	}
	if patch.ContentPath != nil {
		post.ContentPath = strings.TrimSpace(*patch.ContentPath)
	}
	if patch.Tags != nil {
		post.SetTags(patch.Tags)
	}
	if patch.Slug != nil {
		post.Slug = normalizeSlug(patch.Slug)
	}
	if patch.Visibility != nil {
		post.Visibility = *patch.Visibility
	}

	if err := validatePost(post); err != nil {
		return nil, err
	}
	if err := s.ensureSlugFree(ctx, post.Slug, post.ID); err != nil {
		return nil, err
	}

	// the row is saved first so a rejected update never replaces the body
	if err := s.repo.Update(ctx, post); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrSlugTaken
		}
		return nil, fmt.Errorf("update post: %w", err)
	}
	s.invalidate(ctx, post, previousSlug)

	if patch.Content != nil {
		if err := s.store.Write(ctx, post.ContentPath, *patch.Content); err != nil {
			return nil, fmt.Errorf("write content: %w", err)
		}
	}
	return post, nil
}

// Delete removes the post with id.
func (s *postService) Delete(ctx context.Context, id uint) error {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrPostNotFound
		}
		return fmt.Errorf("find post: %w", err)
	}
	return s.remove(ctx, post)
}

// DeleteBySlug removes the post with slug.
func (s *postService) DeleteBySlug(ctx context.Context, slug string) error {
	post, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrPostNotFound
		}
		return fmt.Errorf("find post: %w", err)
	}
	return s.remove(ctx, post)
}

func (s *postService) remove(ctx context.Context, post *model.Post) error {
	if err := s.repo.Delete(ctx, post.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrPostNotFound
		}
		return fmt.Errorf("delete post: %w", err)
	}
	s.invalidate(ctx, post, nil)
	return nil
}

// DeleteAll removes every post and evicts the cached entries of each one.
func (s *postService) DeleteAll(ctx context.Context) (int64, error) {
	posts, err := s.repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list posts: %w", err)
	}
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete posts: %w", err)
	}
	for i := range posts {
		s.invalidate(ctx, &posts[i], nil)
	}
	return n, nil
}

func (s *postService) ensureSlugFree(ctx context.Context, slug *string, selfID uint) error {
	if slug == nil {
		return nil
	}
	existing, err := s.repo.FindBySlug(ctx, *slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("check slug: %w", err)
	}
	if existing.ID != selfID {
		return apperrors.ErrSlugTaken
	}
	return nil
}

func (s *postService) invalidate(ctx context.Context, post *model.Post, previousSlug *string) {
	keys := []string{postListCacheKey, idCacheKey(post.ID)}
	if post.Slug != nil {
		keys = append(keys, slugCacheKey(*post.Slug))
	}
	if previousSlug != nil {
		keys = append(keys, slugCacheKey(*previousSlug))
	}
	s.cache.Delete(ctx, keys...)
}

func validatePost(post *model.Post) error {
	switch {
	case post.Title == "":
		return fmt.Errorf("%w: title is required", apperrors.ErrInvalidPost)
	case post.ContentPath == "":
		return fmt.Errorf("%w: content_path is required", apperrors.ErrInvalidPost)
	case !model.ValidVisibility(post.Visibility):
		return fmt.Errorf("%w: unknown visibility %q", apperrors.ErrInvalidPost, post.Visibility)
	}
	return nil
}

// normalizeSlug trims slug and maps blank to nil so several posts may omit it.
func normalizeSlug(slug *string) *string {
	if slug == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*slug)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
