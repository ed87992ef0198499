package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"maiblog/internal/db"
	"maiblog/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gormDB, err := db.Open("sqlite", ":memory:")
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))
	return gormDB
}

func strPtr(s string) *string { return &s }

func TestUserRepository(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	user := &model.User{Email: "Reader@Example.com", PasswordHash: "digest"}
	require.NoError(t, repo.Create(ctx, user))
	require.NotZero(t, user.ID)

	got, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, got.Role)
	assert.Nil(t, got.MembershipExpiresAt)

	got, err = repo.FindByEmail(ctx, "Reader@Example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = repo.FindByEmail(ctx, "reader@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = repo.FindByID(ctx, 999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	err = repo.Create(ctx, &model.User{Email: "Reader@Example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestUserRepository_SetMembershipExpiry(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()
	expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	reader := &model.User{Email: "reader@example.com", PasswordHash: "d"}
	admin := &model.User{Email: "admin@example.com", PasswordHash: "d", Role: model.RoleAdmin}
	require.NoError(t, repo.Create(ctx, reader))
	require.NoError(t, repo.Create(ctx, admin))

	upgraded, err := repo.SetMembershipExpiry(ctx, reader, expiry)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, upgraded.Role)
	assert.Equal(t, model.RoleUser, reader.Role)

	stored, err := repo.FindByID(ctx, reader.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, stored.Role)
	require.NotNil(t, stored.MembershipExpiresAt)
	assert.True(t, expiry.Equal(*stored.MembershipExpiresAt))

	upgraded, err = repo.SetMembershipExpiry(ctx, admin, expiry)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, upgraded.Role)
	stored, err = repo.FindByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, stored.Role)
}

func TestPostRepository(t *testing.T) {
	repo := NewPostRepository(newTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	older := &model.Post{Title: "Older", ContentPath: "older.md", Slug: strPtr("older"), CreatedAt: base}
	newer := &model.Post{Title: "Newer", ContentPath: "newer.md", Slug: strPtr("newer"), Visibility: model.VisibilityPublic, CreatedAt: base.Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	posts, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "Newer", posts[0].Title)
	assert.Equal(t, model.VisibilityRegistered, posts[1].Visibility)

	got, err := repo.FindBySlug(ctx, "older")
	require.NoError(t, err)
	assert.Equal(t, older.ID, got.ID)

	got.Title = "Older, edited"
	got.SetTags([]string{"go", "blog"})
	require.NoError(t, repo.Update(ctx, got))
	got, err = repo.FindByID(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, "Older, edited", got.Title)
	assert.Equal(t, []string{"go", "blog"}, got.TagList())

	err = repo.Create(ctx, &model.Post{Title: "Dup", ContentPath: "dup.md", Slug: strPtr("newer")})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	require.NoError(t, repo.Delete(ctx, older.ID))
	assert.ErrorIs(t, repo.Delete(ctx, older.ID), gorm.ErrRecordNotFound)
	_, err = repo.FindBySlug(ctx, "older")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	n, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	posts, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, posts)
}
