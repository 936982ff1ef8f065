package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"divisionone/internal/client"
	"divisionone/internal/handlers"
	"divisionone/internal/ledger"
	"divisionone/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handlers.New(client.New(ledger.New()), nil, nil)
	return SetupRouter(h, &config.Settings{
		AllowedOrigins: []string{"http://localhost:3000"},
		RateLimitRPS:   100,
		RateLimitBurst: 100,
	})
}

func TestSetupRouter(t *testing.T) {
	r := newRouter()

	do := func(method, path, origin string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(method, path, nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("health", func(t *testing.T) {
		w := do(http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", w.Body.String())
	})

	t.Run("allowed origin", func(t *testing.T) {
		w := do(http.MethodGet, "/fees/quote?amount=1000", "http://localhost:3000")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("other origin", func(t *testing.T) {
		w := do(http.MethodGet, "/fees/quote?amount=1000", "http://evil.example")
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		w := do(http.MethodOptions, "/fees/quote", "http://localhost:3000")
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("unconfigured event log", func(t *testing.T) {
		assert.Equal(t, http.StatusServiceUnavailable, do(http.MethodGet, "/events", "").Code)
		assert.Equal(t, http.StatusServiceUnavailable, do(http.MethodGet, "/events/ws", "").Code)
	})
}
