package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRecoveryMiddleware(t *testing.T) {
	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))

	router := gin.New()
	router.Use(RequestID())
	router.Use(Recovery())
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})
	router.GET("/normal", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	t.Run("panic recovery", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/panic", nil)
		req.Header.Set("X-Request-ID", "panic-req-1")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("Expected status 500, got %d", w.Code)
		}

		body := w.Body.String()
		if !strings.Contains(body, "Internal server error") {
			t.Error("Expected error message in response")
		}
		if !strings.Contains(body, "panic-req-1") {
			t.Error("Expected request id in response")
		}
		if !strings.Contains(buf.String(), "request_id=panic-req-1") {
			t.Errorf("Expected request id in panic log, got %s", buf.String())
		}
	})

	t.Run("normal request", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/normal", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
	})
}
