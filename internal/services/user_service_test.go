package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamchat-backend/internal/chaterr"
	"teamchat-backend/internal/models"
	"teamchat-backend/internal/store/storetest"
)

func TestRegisterAndLogin(t *testing.T) {
	svc := NewUserService(storetest.New())
	ctx := context.Background()

	user, err := svc.Register(ctx, models.RegisterRequest{Name: "alice", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, user.Role)
	assert.NotEqual(t, "s3cret", user.PasswordHash)

	t.Run("duplicate name rejected", func(t *testing.T) {
		_, err := svc.Register(ctx, models.RegisterRequest{Name: "alice", Password: "other"})
		assert.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("empty input rejected", func(t *testing.T) {
		_, err := svc.Register(ctx, models.RegisterRequest{Name: " ", Password: "x"})
		assert.ErrorIs(t, err, chaterr.ErrValidation)
	})

	t.Run("login issues a resolvable session token", func(t *testing.T) {
		res, err := svc.Login(ctx, models.LoginRequest{Name: "alice", Password: "s3cret"})
		require.NoError(t, err)
		assert.Equal(t, user.ID, res.UserID)

		resolved, err := ValidateSessionToken(res.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, resolved)
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		_, err := svc.Login(ctx, models.LoginRequest{Name: "alice", Password: "nope"})
		assert.Error(t, err)
	})
}

func TestValidateSessionToken_Garbage(t *testing.T) {
	_, err := ValidateSessionToken("not-a-token")
	assert.Error(t, err)
}
