package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sims-core-api/internal/models"
	"github.com/noah-isme/sims-core-api/internal/repository"
	appErrors "github.com/noah-isme/sims-core-api/pkg/errors"
)

type attendanceWriter interface {
	Create(ctx context.Context, fact *models.AttendanceFact) error
}

// RecordAttendanceRequest describes one attendance fact.
type RecordAttendanceRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	SectionID string `json:"section_id" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Present   bool   `json:"present"`
	Reason    string `json:"reason"`
}

// AttendanceService records the facts the eligibility evaluator reads.
// Facts are immutable once written.
type AttendanceService struct {
	repo      attendanceWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(repo attendanceWriter, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, validator: validate, logger: logger}
}

// Record persists one fact for (student, section, date).
func (s *AttendanceService) Record(ctx context.Context, req RecordAttendanceRequest) (*models.AttendanceFact, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	fact := &models.AttendanceFact{
		StudentID: req.StudentID,
		SectionID: req.SectionID,
		Date:      date,
		Present:   req.Present,
		Reason:    req.Reason,
	}
	if err := s.repo.Create(ctx, fact); err != nil {
		if errors.Is(err, repository.ErrDuplicateFact) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "attendance already recorded for this date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	return fact, nil
}
