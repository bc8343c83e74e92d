package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestProfileLabels(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var route, method string
	r := gin.New()
	r.Use(ProfileLabels())
	r.GET("/sales/:id", func(c *gin.Context) {
		route, _ = pprof.Label(c.Request.Context(), "route")
		method, _ = pprof.Label(c.Request.Context(), "method")
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sales/8b0c", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/sales/:id", route)
	assert.Equal(t, http.MethodGet, method)
}

func TestProfileLabels_SkipsHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	labelled := true
	r := gin.New()
	r.Use(ProfileLabels())
	r.GET("/health", func(c *gin.Context) {
		_, labelled = pprof.Label(c.Request.Context(), "route")
		c.Status(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.False(t, labelled)
}
