//go:build integration

package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectureship/backend/internal/models"
	"github.com/lectureship/backend/pkg/testutil/containers"
)

func TestRepository_EnsureAdmin(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	repo := NewRepository(containers.NewPostgres(t))

	created, err := repo.EnsureAdmin(ctx, " Admin@Example.org ", "correct horse")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.EnsureAdmin(ctx, "admin@example.org", "another password")
	require.NoError(t, err)
	assert.False(t, created)

	u, err := repo.GetByEmail(ctx, "ADMIN@example.org")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.org", u.Email)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.True(t, CheckPassword("correct horse", u.Password))

	_, err = repo.GetByEmail(ctx, "nobody@example.org")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = repo.EnsureAdmin(ctx, "weak@example.org", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)
}
