package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hifz_backend/internal/model"
	"hifz_backend/internal/remote"
	"hifz_backend/internal/syncengine"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", model.NewValidationError("bad", model.FieldError{Field: "name", Error: "is required"}), http.StatusBadRequest},
		{"invalid state", model.NewInvalidStateError("no quiz"), http.StatusConflict},
		{"not found", fmt.Errorf("student s1: %w", model.ErrNotFound), http.StatusNotFound},
		{"credentials", ErrInvalidCredentials, http.StatusUnauthorized},
		{"forbidden", ErrPermissionDenied, http.StatusForbidden},
		{"remote denied", &remote.TransportError{Op: "upsert", Err: remote.ErrPermissionDenied}, http.StatusForbidden},
		{"remote down", &remote.TransportError{Op: "upsert", Retryable: true, Err: remote.ErrUnavailable}, http.StatusBadGateway},
		{"closed", syncengine.ErrClosed, http.StatusServiceUnavailable},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.err))
		})
	}
}

func TestHandleErrorIncludesFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	HandleError(c, model.NewValidationError("invalid teacher", model.FieldError{Field: "loginCode", Error: "already in use"}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp struct {
		Message string             `json:"message"`
		Errors  []model.FieldError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "invalid teacher", resp.Message)
	assert.Equal(t, []model.FieldError{{Field: "loginCode", Error: "already in use"}}, resp.Errors)
}

func TestJWTRoundTrip(t *testing.T) {
	p := model.Principal{Role: model.RoleTeacher, Name: "Ali", TeacherID: "t1"}
	token, err := GenerateJWT(p, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, p, claims.Principal())

	_, err = ParseJWT(token, "other")
	assert.Error(t, err)
}
