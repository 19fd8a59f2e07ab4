package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sims-core-api/internal/models"
	"github.com/noah-isme/sims-core-api/internal/service"
	appErrors "github.com/noah-isme/sims-core-api/pkg/errors"
	"github.com/noah-isme/sims-core-api/pkg/response"
)

type attendanceService interface {
	Record(ctx context.Context, req service.RecordAttendanceRequest) (*models.AttendanceFact, error)
}

type eligibilityService interface {
	Evaluate(ctx context.Context, studentID, sectionID string) (*models.EligibilityReport, error)
}

// AttendanceHandler exposes attendance recording and eligibility lookups.
type AttendanceHandler struct {
	attendance  attendanceService
	eligibility eligibilityService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance attendanceService, eligibility eligibilityService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, eligibility: eligibility}
}

// Record godoc
// @Summary Record an attendance fact
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.RecordAttendanceRequest true "Attendance payload"
// @Success 201 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Record(c *gin.Context) {
	var req service.RecordAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	fact, err := h.attendance.Record(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, fact)
}

// Eligibility godoc
// @Summary Evaluate exam eligibility for a student in a section
// @Tags Attendance
// @Produce json
// @Param studentId query string true "Student ID"
// @Param sectionId query string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /eligibility [get]
func (h *AttendanceHandler) Eligibility(c *gin.Context) {
	report, err := h.eligibility.Evaluate(c.Request.Context(), c.Query("studentId"), c.Query("sectionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
