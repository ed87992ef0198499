package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"maiblog/internal/model"
	"maiblog/internal/service"
)

// PostHandler serves post listings, gated detail views and admin writes.
type PostHandler struct {
	posts service.PostService
}

// NewPostHandler creates a post handler.
func NewPostHandler(posts service.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

// Tags accepts either a JSON array or a comma separated string.
type Tags []string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Tags) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = list
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = model.SplitTags(raw)
	return nil
}

// PostSummary is the listing view of a post.
type PostSummary struct {
	ID         uint      `json:"id"`
	Title      string    `json:"title"`
	Excerpt    *string   `json:"excerpt"`
	Tags       []string  `json:"tags"`
	Slug       *string   `json:"slug"`
	Visibility string    `json:"visibility"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PostDetailResponse is a post with its markdown body.
type PostDetailResponse struct {
	PostSummary
	Content string `json:"content"`
}

// CreatePostRequest is the admin payload for a new post.
type CreatePostRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Excerpt     *string `json:"excerpt" validate:"omitempty,max=500"`
	ContentPath string  `json:"content_path" validate:"max=255"`
	Content     string  `json:"content"`
	Tags        Tags    `json:"tags"`
	Slug        *string `json:"slug" validate:"omitempty,max=200"`
	Visibility  string  `json:"visibility" validate:"omitempty,oneof=public registered member"`
}

// UpdatePostRequest is the admin payload for a partial update. Absent fields are left unchanged.
type UpdatePostRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Excerpt     *string `json:"excerpt" validate:"omitempty,max=500"`
	ContentPath *string `json:"content_path" validate:"omitempty,min=1,max=255"`
	Content     *string `json:"content"`
	Tags        *Tags   `json:"tags"`
	Slug        *string `json:"slug" validate:"omitempty,max=200"`
	Visibility  *string `json:"visibility" validate:"omitempty,oneof=public registered member"`
}

func summarize(p *model.Post) PostSummary {
	return PostSummary{
		ID:         p.ID,
		Title:      p.Title,
		Excerpt:    p.Excerpt,
		Tags:       p.TagList(),
		Slug:       p.Slug,
		Visibility: p.Visibility,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("invalid post id", "INVALID_ID")
	}
	return uint(id), nil
}

// ListPosts godoc
// @Summary List posts
// @Description Metadata only, newest first.
// @Tags posts
// @Produce json
// @Success 200 {array} PostSummary
// @Failure 500 {object} errors.ErrorResponse
// @Router /posts [get]
func (h *PostHandler) ListPosts(c echo.Context) error {
	posts, err := h.posts.List(c.Request().Context())
	if err != nil {
		return domainError(err)
	}

	out := make([]PostSummary, 0, len(posts))
	for i := range posts {
		out = append(out, summarize(&posts[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// GetPost godoc
// @Summary Get post by id
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} PostDetailResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id} [get]
func (h *PostHandler) GetPost(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	detail, err := h.posts.GetByID(c.Request().Context(), id, CurrentUser(c))
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, PostDetailResponse{PostSummary: summarize(detail.Post), Content: detail.Content})
}

// GetPostBySlug godoc
// @Summary Get post by slug
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Post slug"
// @Success 200 {object} PostDetailResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/slug/{slug} [get]
func (h *PostHandler) GetPostBySlug(c echo.Context) error {
	detail, err := h.posts.GetBySlug(c.Request().Context(), c.Param("slug"), CurrentUser(c))
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, PostDetailResponse{PostSummary: summarize(detail.Post), Content: detail.Content})
}

// CreatePost godoc
// @Summary Create post
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreatePostRequest true "Post"
// @Success 201 {object} PostSummary
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /admin/posts [post]
func (h *PostHandler) CreatePost(c echo.Context) error {
	var req CreatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	post, err := h.posts.Create(c.Request().Context(), service.PostInput{
		Title:       req.Title,
		Excerpt:     req.Excerpt,
		ContentPath: req.ContentPath,
		Content:     req.Content,
		Tags:        req.Tags,
		Slug:        req.Slug,
		Visibility:  req.Visibility,
	})
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusCreated, summarize(post))
}

// UpdatePost godoc
// @Summary Update post
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body UpdatePostRequest true "Fields to change"
// @Success 200 {object} PostSummary
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /admin/posts/{id} [patch]
func (h *PostHandler) UpdatePost(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req UpdatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	patch := service.PostPatch{
		Title:       req.Title,
		Excerpt:     req.Excerpt,
		ContentPath: req.ContentPath,
		Content:     req.Content,
		Slug:        req.Slug,
		Visibility:  req.Visibility,
	}
	if req.Tags != nil {
		patch.Tags = append([]string{}, (*req.Tags)...)
	}

	post, err := h.posts.Update(c.Request().Context(), id, patch)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, summarize(post))
}

// DeletePost godoc
// @Summary Delete post
// @Tags admin
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/posts/{id} [delete]
func (h *PostHandler) DeletePost(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.posts.Delete(c.Request().Context(), id); err != nil {
		return domainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
