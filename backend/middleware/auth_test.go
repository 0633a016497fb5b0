package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AnTengye/contractvigency/backend/config"
	"github.com/AnTengye/contractvigency/backend/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testAuthConfig = &config.AuthConfig{
	JWTSecret:        "test-secret-key",
	TokenExpireHours: 24,
}

func signClaims(t *testing.T, claims Claims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return s
}

func TestGenerateToken(t *testing.T) {
	token, expiresAt, err := GenerateToken("gestor", "prefeitura", testAuthConfig)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	expectedExpiry := time.Now().Add(24 * time.Hour)
	if expiresAt.Before(expectedExpiry.Add(-time.Minute)) || expiresAt.After(expectedExpiry.Add(time.Minute)) {
		t.Errorf("Expiry time %v is not within expected range of %v", expiresAt, expectedExpiry)
	}

	claims, err := ParseToken(token, testAuthConfig)
	if err != nil {
		t.Fatalf("Failed to parse generated token: %v", err)
	}
	if claims.Username != "gestor" || claims.Tenant != "prefeitura" {
		t.Errorf("Unexpected claims %+v", claims)
	}
}

func TestAuthMiddleware(t *testing.T) {
	token, _, err := GenerateToken("gestor", "prefeitura", testAuthConfig)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	foreign := signClaims(t, Claims{
		Username:         "gestor",
		Tenant:           "prefeitura",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}, "another-secret")

	noTenant := signClaims(t, Claims{
		Username:         "gestor",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}, testAuthConfig.JWTSecret)

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{"valid token", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"invalid format", token, http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"invalid token", "Bearer invalid.token.here", http.StatusUnauthorized},
		{"signed with another secret", "Bearer " + foreign, http.StatusUnauthorized},
		{"token without tenant", "Bearer " + noTenant, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(AuthMiddleware(testAuthConfig))
			router.GET("/test", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"message": "ok"})
			})

			req := httptest.NewRequest("GET", "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestAuthMiddlewareExpiredToken(t *testing.T) {
	tokenString := signClaims(t, Claims{
		Username: "gestor",
		Tenant:   "prefeitura",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}, testAuthConfig.JWTSecret)

	router := gin.New()
	router.Use(AuthMiddleware(testAuthConfig))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d for expired token, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestAuthMiddlewareSetsRequestContext(t *testing.T) {
	token, _, _ := GenerateToken("gestor", "prefeitura", testAuthConfig)

	var tenant, username any
	router := gin.New()
	router.Use(AuthMiddleware(testAuthConfig))
	router.GET("/test", func(c *gin.Context) {
		tenant = c.Request.Context().Value(logger.TenantKey)
		username = c.Request.Context().Value(logger.UsernameKey)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(httptest.NewRecorder(), req)

	if tenant != "prefeitura" {
		t.Errorf("Expected tenant in request context, got %v", tenant)
	}
	if username != "gestor" {
		t.Errorf("Expected username in request context, got %v", username)
	}
}

func TestGetUsername(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if GetUsername(c) != "" {
		t.Error("Expected empty string for unset username")
	}

	c.Set("username", "gestor")
	if GetUsername(c) != "gestor" {
		t.Errorf("Expected 'gestor', got '%s'", GetUsername(c))
	}
}

func TestGetTenant(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if GetTenant(c) != "" {
		t.Error("Expected empty string for unset tenant")
	}

	c.Set("tenant", "prefeitura")
	if GetTenant(c) != "prefeitura" {
		t.Errorf("Expected 'prefeitura', got '%s'", GetTenant(c))
	}
}
