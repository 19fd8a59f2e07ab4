package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sims-core-api/internal/middleware"
	"github.com/noah-isme/sims-core-api/internal/models"
)

type fakeDashboardSrv struct {
	adminResp   *models.AdminDashboardStats
	adminErr    error
	adminHit    bool
	studentResp *models.StudentDashboardStats
	studentErr  error
	studentHit  bool
	lastStudent string
}

func (f *fakeDashboardSrv) Admin(context.Context) (*models.AdminDashboardStats, bool, error) {
	return f.adminResp, f.adminHit, f.adminErr
}

func (f *fakeDashboardSrv) Student(_ context.Context, studentID string) (*models.StudentDashboardStats, bool, error) {
	f.lastStudent = studentID
	return f.studentResp, f.studentHit, f.studentErr
}

func TestDashboardHandlerStatsRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&fakeDashboardSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/stats", nil)

	handler.Stats(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardHandlerStatsAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&fakeDashboardSrv{
		adminResp: &models.AdminDashboardStats{ActiveEnrollments: 12, GeneratedAt: time.Now()},
		adminHit:  true,
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/stats", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "adm-1", Role: models.RoleAdmin})

	handler.Stats(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Equal(t, true, envelope.Meta["cached"])
	assert.Equal(t, float64(12), envelope.Data["active_enrollments"])
}

func TestDashboardHandlerStatsStudentScopedToCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeDashboardSrv{
		studentResp: &models.StudentDashboardStats{StudentID: "stu-1", EnrolledSections: 3},
	}
	handler := NewDashboardHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/stats", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})

	handler.Stats(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stu-1", service.lastStudent)
}

type responseEnvelope struct {
	Data map[string]interface{} `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}
