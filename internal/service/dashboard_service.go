package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sims-core-api/internal/models"
	appErrors "github.com/noah-isme/sims-core-api/pkg/errors"
)

type enrollmentCounter interface {
	CountAllActive(ctx context.Context) (int, error)
	CountActiveByStudent(ctx context.Context, studentID string) (int, error)
}

type resultCounter interface {
	CountByState(ctx context.Context, state models.ResultState) (int, error)
	CountPublishedByStudent(ctx context.Context, studentID string) (int, error)
}

type changeRequestCounter interface {
	CountPending(ctx context.Context) (int, error)
	CountPendingByStudent(ctx context.Context, studentID string) (int, error)
}

type ineligibilityCounter interface {
	IneligibleCount(ctx context.Context) (int, error)
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Enrollments    enrollmentCounter
	Results        resultCounter
	ChangeRequests changeRequestCounter
	Eligibility    ineligibilityCounter
	Cache          *CacheService
	Logger         *zap.Logger
	CacheTTL       time.Duration
}

// DashboardService composes aggregate counters for the admin and student
// dashboard endpoints, with short-lived cached snapshots.
type DashboardService struct {
	enrollments    enrollmentCounter
	results        resultCounter
	changeRequests changeRequestCounter
	eligibility    ineligibilityCounter
	cache          *CacheService
	logger         *zap.Logger
	now            func() time.Time
	cacheTTL       time.Duration
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	ttl := params.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		enrollments:    params.Enrollments,
		results:        params.Results,
		changeRequests: params.ChangeRequests,
		eligibility:    params.Eligibility,
		cache:          params.Cache,
		logger:         logger,
		now:            time.Now,
		cacheTTL:       ttl,
	}
}

// Admin returns the admin dashboard snapshot and indicates cache utilisation.
func (s *DashboardService) Admin(ctx context.Context) (*models.AdminDashboardStats, bool, error) {
	const cacheKey = "dash:admin"
	if s.cache != nil {
		var cached models.AdminDashboardStats
		hit, err := s.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			return nil, false, err
		}
		if hit {
			return &cached, true, nil
		}
	}

	stats, err := s.composeAdminStats(ctx)
	if err != nil {
		return nil, false, err
	}
	s.persistCache(ctx, cacheKey, stats)
	return stats, false, nil
}

// Student returns the per-student snapshot and indicates cache utilisation.
func (s *DashboardService) Student(ctx context.Context, studentID string) (*models.StudentDashboardStats, bool, error) {
	if studentID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "studentId is required")
	}
	cacheKey := fmt.Sprintf("dash:student:%s", studentID)
	if s.cache != nil {
		var cached models.StudentDashboardStats
		hit, err := s.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			return nil, false, err
		}
		if hit {
			return &cached, true, nil
		}
	}

	stats, err := s.composeStudentStats(ctx, studentID)
	if err != nil {
		return nil, false, err
	}
	s.persistCache(ctx, cacheKey, stats)
	return stats, false, nil
}

// InvalidateStudent drops the cached snapshot for a single student.
func (s *DashboardService) InvalidateStudent(ctx context.Context, studentID string) {
	if s.cache == nil || studentID == "" {
		return
	}
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("dash:student:%s", studentID)); err != nil {
		s.logger.Warn("dashboard cache invalidate failed", zap.String("student_id", studentID), zap.Error(err))
	}
}

func (s *DashboardService) composeAdminStats(ctx context.Context) (*models.AdminDashboardStats, error) {
	active, err := s.enrollments.CountAllActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	published, err := s.results.CountByState(ctx, models.ResultStatePublished)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count published results")
	}
	drafts, err := s.results.CountByState(ctx, models.ResultStateDraft)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count draft results")
	}
	pending, err := s.changeRequests.CountPending(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending change requests")
	}
	ineligible, err := s.eligibility.IneligibleCount(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count ineligible students")
	}

	return &models.AdminDashboardStats{
		ActiveEnrollments:     active,
		PublishedResults:      published,
		DraftResults:          drafts,
		PendingChangeRequests: pending,
		IneligibleStudents:    ineligible,
		GeneratedAt:           s.now().UTC(),
	}, nil
}

func (s *DashboardService) composeStudentStats(ctx context.Context, studentID string) (*models.StudentDashboardStats, error) {
	enrolled, err := s.enrollments.CountActiveByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count student enrollments")
	}
	published, err := s.results.CountPublishedByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count student results")
	}
	pending, err := s.changeRequests.CountPendingByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count student change requests")
	}

	return &models.StudentDashboardStats{
		StudentID:             studentID,
		EnrolledSections:      enrolled,
		PublishedResults:      published,
		PendingChangeRequests: pending,
		GeneratedAt:           s.now().UTC(),
	}, nil
}

func (s *DashboardService) persistCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}
