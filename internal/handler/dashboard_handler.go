package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sims-core-api/internal/models"
	appErrors "github.com/noah-isme/sims-core-api/pkg/errors"
	"github.com/noah-isme/sims-core-api/pkg/response"
)

type dashboardService interface {
	Admin(ctx context.Context) (*models.AdminDashboardStats, bool, error)
	Student(ctx context.Context, studentID string) (*models.StudentDashboardStats, bool, error)
}

// DashboardHandler exposes cached dashboard snapshots.
type DashboardHandler struct {
	dashboard dashboardService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboard dashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Stats godoc
// @Summary Dashboard statistics for the caller's role
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/stats [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if claims.Role == models.RoleStudent {
		stats, cached, err := h.dashboard.Student(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, stats, nil, map[string]interface{}{"cached": cached})
		return
	}

	stats, cached, err := h.dashboard.Admin(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, map[string]interface{}{"cached": cached})
}
