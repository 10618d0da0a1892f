package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/prohmpiriya/sport-slots-booker/pkg/response"
)

const (
	// UserIDKey is the gin context key holding the caller's user id
	UserIDKey = "user_id"
	// UserIDHeader is accepted in place of a token when AllowHeader is set
	UserIDHeader = "X-User-ID"
)

// AuthConfig configures bearer-token verification. Tokens are issued elsewhere;
// this service only reads the subject.
type AuthConfig struct {
	Secret      string
	Issuer      string
	AllowHeader bool
}

// Claims are the token claims this service reads
type Claims struct {
	jwt.RegisteredClaims
}

// Auth resolves the current user id and stores it under UserIDKey
func Auth(cfg *AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			if cfg.AllowHeader {
				if userID := c.GetHeader(UserIDHeader); userID != "" {
					c.Set(UserIDKey, userID)
					c.Next()
					return
				}
			}
			response.Unauthorized(c, "missing bearer token")
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			response.Unauthorized(c, "malformed authorization header")
			return
		}

		userID, err := ParseUserID(token, cfg)
		if err != nil {
			response.Unauthorized(c, "invalid token")
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// ParseUserID verifies an HS256 token and returns its subject
func ParseUserID(token string, cfg *AuthConfig) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if !parsed.Valid {
		return "", errors.New("token is not valid")
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// GetUserID returns the user id set by Auth, or ""
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
