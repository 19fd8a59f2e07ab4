package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/sims-core-api/internal/models"
	appErrors "github.com/noah-isme/sims-core-api/pkg/errors"
)

type attendanceReader interface {
	PairSummary(ctx context.Context, studentID, sectionID string) (*models.AttendanceSummary, error)
	IneligibleCount(ctx context.Context, threshold float64) (int, error)
}

// EligibilityService derives attendance ratios from recorded facts. It is
// read-only; counts come from a single aggregated query per pair so the cost
// stays flat for large rosters.
type EligibilityService struct {
	attendance attendanceReader
	threshold  float64
	logger     *zap.Logger
}

// NewEligibilityService constructs the evaluator. Threshold is a percentage;
// values outside (0, 100] fall back to 75.
func NewEligibilityService(attendance attendanceReader, threshold float64, logger *zap.Logger) *EligibilityService {
	if threshold <= 0 || threshold > 100 {
		threshold = 75
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EligibilityService{attendance: attendance, threshold: threshold, logger: logger}
}

// Threshold returns the configured minimum attendance rate in percent.
func (s *EligibilityService) Threshold() float64 {
	return s.threshold
}

// AttendanceRate returns the attendance ratio in percent for a pair. A
// student with no recorded facts has a rate of 0 and is eligible by default.
func (s *EligibilityService) AttendanceRate(ctx context.Context, studentID, sectionID string) (float64, error) {
	summary, err := s.attendance.PairSummary(ctx, studentID, sectionID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate attendance")
	}
	return summary.Rate(), nil
}

// Evaluate reports the rate and the ineligibility flag for a pair. A student
// is ineligible only when facts exist and the rate is below the threshold.
func (s *EligibilityService) Evaluate(ctx context.Context, studentID, sectionID string) (*models.EligibilityReport, error) {
	if studentID == "" || sectionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_id and section_id are required")
	}
	summary, err := s.attendance.PairSummary(ctx, studentID, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate attendance")
	}
	rate := summary.Rate()
	return &models.EligibilityReport{
		StudentID:  studentID,
		SectionID:  sectionID,
		Present:    summary.Present,
		Total:      summary.Total,
		Rate:       rate,
		Threshold:  s.threshold,
		Ineligible: summary.Total > 0 && rate < s.threshold,
	}, nil
}

// IneligibleCount counts students below the threshold across all sections.
func (s *EligibilityService) IneligibleCount(ctx context.Context) (int, error) {
	count, err := s.attendance.IneligibleCount(ctx, s.threshold)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count ineligible students")
	}
	return count, nil
}
