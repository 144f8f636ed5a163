package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/RubachokBoss/edugrader/internal/models"
	"github.com/RubachokBoss/edugrader/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	student := f.register(t, "Student@Uni.test", "")
	assert.Equal(t, models.RoleStudent, student.Role)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := f.auth.Register(ctx, &models.RegisterRequest{
			Email: "student@uni.test", Password: "password123", FullName: "Again",
		})
		assert.ErrorIs(t, err, service.ErrConflict)
	})

	t.Run("admin cannot be self-registered", func(t *testing.T) {
		_, err := f.auth.Register(ctx, &models.RegisterRequest{
			Email: "boss@uni.test", Password: "password123", FullName: "Boss", Role: models.RoleAdmin,
		})
		assert.ErrorIs(t, err, service.ErrForbidden)
	})

	t.Run("validation", func(t *testing.T) {
		cases := []*models.RegisterRequest{
			{Email: "not-an-email", Password: "password123", FullName: "X"},
			{Email: "short@uni.test", Password: "short", FullName: "X"},
			{Email: "noname@uni.test", Password: "password123"},
			{Email: "role@uni.test", Password: "password123", FullName: "X", Role: "dean"},
			{Email: "long@uni.test", Password: strings.Repeat("p", 80), FullName: "X"},
			{Email: "group@uni.test", Password: "password123", FullName: "X", Group: strings.Repeat("g", models.MaxGroupLength+1)},
			{Email: strings.Repeat("e", models.MaxEmailLength) + "@uni.test", Password: "password123", FullName: "X"},
		}
		for _, req := range cases {
			_, err := f.auth.Register(ctx, req)
			assert.ErrorIs(t, err, service.ErrValidation, req.Email)
		}
	})
}

func TestLoginRefreshAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.register(t, "s@uni.test", models.RoleStudent)

	tokens, err := f.auth.Login(ctx, &models.LoginRequest{Email: "S@uni.test", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", tokens.TokenType)
	assert.EqualValues(t, 15*60, tokens.ExpiresIn)

	p, err := f.auth.Authenticate(ctx, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, student, p)

	// refresh-токен не принимается как access
	_, err = f.auth.Authenticate(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, service.ErrUnauthenticated)

	refreshed, err := f.auth.Refresh(ctx, &models.RefreshRequest{RefreshToken: tokens.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	_, err = f.auth.Login(ctx, &models.LoginRequest{Email: "s@uni.test", Password: "wrong-password"})
	assert.ErrorIs(t, err, service.ErrUnauthenticated)

	f.store.SetUserActive(student.UserID, false)
	_, err = f.auth.Login(ctx, &models.LoginRequest{Email: "s@uni.test", Password: "password123"})
	assert.ErrorIs(t, err, service.ErrUnauthenticated)
	_, err = f.auth.Authenticate(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, service.ErrUnauthenticated)
	_, err = f.auth.Refresh(ctx, &models.RefreshRequest{RefreshToken: tokens.RefreshToken})
	assert.ErrorIs(t, err, service.ErrUnauthenticated)
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	me, err := f.auth.Me(context.Background(), f.teacher)
	require.NoError(t, err)
	assert.Equal(t, "teacher@uni.test", me.Email)
	assert.Equal(t, models.RoleTeacher, me.Role)
}
