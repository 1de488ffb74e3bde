package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hifz_backend/internal/cache"
	"hifz_backend/internal/model"
	"hifz_backend/internal/util"
)

const testSecret = "test-secret"

func authService(t *testing.T, bootstrap string) (*AuthService, *cache.Memory) {
	t.Helper()
	svc, _, _ := school(t)
	prefs := cache.NewMemory()
	return NewAuthService(svc, prefs, testSecret, time.Hour, bootstrap), prefs
}

func TestLoginByRole(t *testing.T) {
	auth, _ := authService(t, "bootstrap")
	ctx := context.Background()

	tests := []struct {
		name   string
		role   model.UserRole
		secret string
		want   model.Principal
		err    error
	}{
		{"teacher", model.RoleTeacher, "1111", model.Principal{Role: model.RoleTeacher, Name: "Ali", TeacherID: "t1"}, nil},
		{"teacher code with spaces", model.RoleTeacher, " 2222 ", model.Principal{Role: model.RoleTeacher, Name: "Omar", TeacherID: "t2"}, nil},
		{"parent", model.RoleParent, "p3", model.Principal{Role: model.RoleParent, Name: "Huda", StudentID: "s3", TeacherID: "t2"}, nil},
		{"parent code is not a teacher code", model.RoleTeacher, "p1", model.Principal{}, util.ErrInvalidCredentials},
		{"unknown parent code", model.RoleParent, "nope", model.Principal{}, util.ErrInvalidCredentials},
		{"empty secret", model.RoleParent, "  ", model.Principal{}, util.ErrInvalidCredentials},
		{"admin bootstrap", model.RoleAdmin, "bootstrap", model.Principal{Role: model.RoleAdmin, Name: "admin"}, nil},
		{"wrong admin password", model.RoleAdmin, "guess", model.Principal{}, util.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := auth.Login(ctx, tt.role, tt.secret)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Principal)

			claims, err := util.ParseJWT(res.Token, testSecret)
			require.NoError(t, err)
			assert.Equal(t, tt.want, claims.Principal())
		})
	}

	_, err := auth.Login(ctx, "principal", "x")
	assert.True(t, model.IsValidation(err))
}

func TestAdminPasswordIsUpgradedToHash(t *testing.T) {
	tests := []struct {
		name      string
		stored    string
		bootstrap string
	}{
		{name: "bootstrap password", bootstrap: "letmein"},
		{name: "legacy plaintext", stored: "letmein", bootstrap: "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth, prefs := authService(t, tt.bootstrap)
			ctx := context.Background()
			if tt.stored != "" {
				require.NoError(t, prefs.SetPreference(ctx, AdminPasswordKey, tt.stored))
			}

			_, err := auth.Login(ctx, model.RoleAdmin, "letmein")
			require.NoError(t, err)

			stored, err := prefs.GetPreference(ctx, AdminPasswordKey)
			require.NoError(t, err)
			assert.True(t, isBcryptHash(stored))
			assert.NotContains(t, stored, "letmein")

			_, err = auth.Login(ctx, model.RoleAdmin, "letmein")
			assert.NoError(t, err)
			_, err = auth.Login(ctx, model.RoleAdmin, tt.bootstrap+"x")
			assert.ErrorIs(t, err, util.ErrInvalidCredentials)
		})
	}
}

func TestAdminWithoutAnyPassword(t *testing.T) {
	auth, _ := authService(t, "")
	_, err := auth.Login(context.Background(), model.RoleAdmin, "anything")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
}

func TestChangeAdminPassword(t *testing.T) {
	auth, _ := authService(t, "letmein")
	ctx := context.Background()

	assert.ErrorIs(t, auth.ChangeAdminPassword(ctx, "wrong", "newpassword"), util.ErrInvalidCredentials)
	assert.True(t, model.IsValidation(auth.ChangeAdminPassword(ctx, "letmein", "abc")))

	require.NoError(t, auth.ChangeAdminPassword(ctx, "letmein", "newpassword"))
	_, err := auth.Login(ctx, model.RoleAdmin, "newpassword")
	assert.NoError(t, err)
	_, err = auth.Login(ctx, model.RoleAdmin, "letmein")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
}
