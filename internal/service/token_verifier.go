package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// TokenVerifier validates HS256 bearer tokens issued by the school platform.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier builds a verifier for the shared secret.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify parses the token and returns its tenant claims. Tokens without a school or a known role are rejected.
func (v *TokenVerifier) Verify(tokenString string) (*models.TenantClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TenantClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.TenantClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.SchoolID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token is not bound to a school")
	}
	switch claims.Role {
	case models.RoleAdmin, models.RoleTeacher, models.RoleStudent, models.RoleParent:
	default:
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token carries an unknown role")
	}

	return claims, nil
}
