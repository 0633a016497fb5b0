package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/AnTengye/contractvigency/backend/config"
	"github.com/AnTengye/contractvigency/backend/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	usernameKey = "username"
	tenantKey   = "tenant"
)

// Claims represents the JWT claims
type Claims struct {
	Username string `json:"username"`
	Tenant   string `json:"tenant"`
	jwt.RegisteredClaims
}

// GenerateToken generates a new JWT token for a user
func GenerateToken(username, tenant string, cfg *config.AuthConfig) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(time.Duration(cfg.TokenExpireHours) * time.Hour)

	claims := Claims{
		Username: username,
		Tenant:   tenant,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// ParseToken validates tokenString and returns its claims.
func ParseToken(tokenString string, cfg *config.AuthConfig) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Tenant == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// AuthMiddleware validates the bearer token and scopes the request to its tenant.
func AuthMiddleware(cfg *config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		scheme, tokenString, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		claims, err := ParseToken(tokenString, cfg)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(usernameKey, claims.Username)
		c.Set(tenantKey, claims.Tenant)

		// Service logs pick the caller up from the request context.
		ctx := context.WithValue(c.Request.Context(), logger.TenantKey, claims.Tenant)
		ctx = context.WithValue(ctx, logger.UsernameKey, claims.Username)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetUsername gets the username from context
func GetUsername(c *gin.Context) string {
	return c.GetString(usernameKey)
}

// GetTenant gets the tenant from context
func GetTenant(c *gin.Context) string {
	return c.GetString(tenantKey)
}
