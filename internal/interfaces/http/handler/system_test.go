package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	fiscalapp "github.com/retailcore/backoffice/internal/application/fiscal"
	"github.com/retailcore/backoffice/internal/domain/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestSystemHandler_Health(t *testing.T) {
	serve := func(checks map[string]HealthCheck) (int, map[string]any) {
		h := NewSystemHandler("retail-backoffice", "test", checks)
		r := gin.New()
		r.GET("/health", h.Health)
		w := doRequest(r, http.MethodGet, "/health", "")
		return w.Code, decodeResponse(t, w).Data.(map[string]any)
	}

	status, data := serve(nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", data["status"])

	status, data = serve(map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "unhealthy", data["status"])
	checks := data["checks"].(map[string]any)
	assert.Equal(t, "ok", checks["database"])
	assert.Contains(t, checks["redis"], "connection refused")
}

func TestFiscalHandler_Health(t *testing.T) {
	accountant := identity.Actor{UserID: uuid.New(), Role: identity.RoleAccountant}
	invoices := new(MockInvoiceUseCases)
	invoices.On("CheckAuthority", mock.Anything, accountant).
		Return(&fiscalapp.AuthorityHealthResponse{Reachable: false, PointOfSale: 3, Error: "timeout"}, nil)

	h := NewFiscalHandler(invoices)
	r := gin.New()
	r.Use(withActor(&accountant))
	r.GET("/fiscal/health", h.Health)

	w := doRequest(r, http.MethodGet, "/fiscal/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, false, data["reachable"])
	assert.Equal(t, float64(3), data["point_of_sale"])
}
