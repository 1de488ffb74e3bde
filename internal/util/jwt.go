package util

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"hifz_backend/internal/model"
)

const contextUserKey = "user"

type Claims struct {
	Role      model.UserRole `json:"role"`
	Name      string         `json:"name,omitempty"`
	TeacherID string         `json:"teacherId,omitempty"`
	StudentID string         `json:"studentId,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) Principal() model.Principal {
	return model.Principal{Role: c.Role, Name: c.Name, TeacherID: c.TeacherID, StudentID: c.StudentID}
}

func GenerateJWT(p model.Principal, secret string, expiration time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role:      p.Role,
		Name:      p.Name,
		TeacherID: p.TeacherID,
		StudentID: p.StudentID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseJWT(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || !claims.Role.Valid() {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func SetUser(c *gin.Context, claims *Claims) {
	c.Set(contextUserKey, claims)
}

func GetUserFromContext(c *gin.Context) *Claims {
	user, exists := c.Get(contextUserKey)
	if !exists {
		return nil
	}
	claims, ok := user.(*Claims)
	if !ok {
		return nil
	}
	return claims
}
