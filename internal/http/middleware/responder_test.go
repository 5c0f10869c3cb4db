package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func responderRouter(key string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ResponderKey(key))
	r.POST("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestResponderKeyRejectsMissingKey(t *testing.T) {
	r := responderRouter("secret")
	req, _ := http.NewRequest(http.MethodPost, "/protected", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestResponderKeyAcceptsMatchingKey(t *testing.T) {
	r := responderRouter("secret")
	req, _ := http.NewRequest(http.MethodPost, "/protected", nil)
	req.Header.Set("X-Responder-Key", "secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestResponderKeyDisabledWhenEmpty(t *testing.T) {
	r := responderRouter("")
	req, _ := http.NewRequest(http.MethodPost, "/protected", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 when key check disabled, got %d", w.Code)
	}
}
