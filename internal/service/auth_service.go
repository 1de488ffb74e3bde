package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"hifz_backend/internal/cache"
	"hifz_backend/internal/model"
	"hifz_backend/internal/util"
	"hifz_backend/pkg/logger"
)

// AdminPasswordKey is the preference holding the admin password hash.
const AdminPasswordKey = "admin_password"

const minAdminPasswordLen = 6

// PreferenceStore is the local, unsynchronised key/value storage.
type PreferenceStore interface {
	GetPreference(ctx context.Context, key string) (string, error)
	SetPreference(ctx context.Context, key, value string) error
}

type AuthService struct {
	source    SnapshotSource
	prefs     PreferenceStore
	secret    string
	expire    time.Duration
	bootstrap string
}

// NewAuthService builds the login service. bootstrap is the admin password
// accepted while none has been stored.
func NewAuthService(source SnapshotSource, prefs PreferenceStore, secret string, expire time.Duration, bootstrap string) *AuthService {
	return &AuthService{source: source, prefs: prefs, secret: secret, expire: expire, bootstrap: bootstrap}
}

type LoginResult struct {
	Token     string          `json:"token"`
	Principal model.Principal `json:"principal"`
}

// Login matches a shared secret against the codes of the given role:
// a teacher's login code, a student's parent code, or the admin password.
func (s *AuthService) Login(ctx context.Context, role model.UserRole, secret string) (LoginResult, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return LoginResult{}, util.ErrInvalidCredentials
	}

	var p model.Principal
	switch role {
	case model.RoleAdmin:
		if err := s.checkAdminPassword(ctx, secret); err != nil {
			return LoginResult{}, err
		}
		p = model.Principal{Role: model.RoleAdmin, Name: "admin"}
	case model.RoleTeacher:
		t, ok := s.source.Snapshot().TeacherByLoginCode(secret)
		if !ok {
			return LoginResult{}, util.ErrInvalidCredentials
		}
		p = model.Principal{Role: model.RoleTeacher, Name: t.Name, TeacherID: t.ID}
	case model.RoleParent:
		st, ok := s.source.Snapshot().StudentByParentCode(secret)
		if !ok {
			return LoginResult{}, util.ErrInvalidCredentials
		}
		p = model.Principal{Role: model.RoleParent, Name: st.Name, StudentID: st.ID, TeacherID: st.TeacherID}
	default:
		return LoginResult{}, model.NewValidationError("invalid login", model.FieldError{Field: "role", Error: "unknown role"})
	}

	token, err := util.GenerateJWT(p, s.secret, s.expire)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, Principal: p}, nil
}

func isBcryptHash(v string) bool {
	return strings.HasPrefix(v, "$2a$") || strings.HasPrefix(v, "$2b$") || strings.HasPrefix(v, "$2y$")
}

// checkAdminPassword compares against the stored hash. A stored plaintext
// password, or the bootstrap password when nothing is stored, is accepted
// once and replaced by a hash.
func (s *AuthService) checkAdminPassword(ctx context.Context, password string) error {
	stored, err := s.prefs.GetPreference(ctx, AdminPasswordKey)
	switch {
	case errors.Is(err, cache.ErrPreferenceNotFound):
		stored = s.bootstrap
	case err != nil:
		return err
	}
	if stored == "" {
		return util.ErrInvalidCredentials
	}

	if isBcryptHash(stored) {
		if bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) != nil {
			return util.ErrInvalidCredentials
		}
		return nil
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(password)) != 1 {
		return util.ErrInvalidCredentials
	}
	if err := s.storeAdminPassword(ctx, password); err != nil {
		logger.Log.Warn("Failed to upgrade admin password", zap.Error(err))
	}
	return nil
}

func (s *AuthService) storeAdminPassword(ctx context.Context, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.prefs.SetPreference(ctx, AdminPasswordKey, string(hash))
}

// ChangeAdminPassword replaces the admin password after checking the
// current one.
func (s *AuthService) ChangeAdminPassword(ctx context.Context, current, next string) error {
	if err := s.checkAdminPassword(ctx, strings.TrimSpace(current)); err != nil {
		return err
	}
	next = strings.TrimSpace(next)
	if len(next) < minAdminPasswordLen {
		return model.NewValidationError("invalid password", model.FieldError{Field: "newPassword", Error: "must be at least 6 characters"})
	}
	return s.storeAdminPassword(ctx, next)
}
