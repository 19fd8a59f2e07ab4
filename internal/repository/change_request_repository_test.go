package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sims-core-api/internal/models"
)

func TestChangeRequestRepositoryCreatePending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO change_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	request := &models.ChangeRequest{
		ResultID:      "res-1",
		ProposedGrade: "A",
		RequestedBy:   "fac-1",
		Reason:        "regrade after appeal",
	}
	require.NoError(t, repo.CreatePending(context.Background(), request))
	require.NotEmpty(t, request.ID)
	require.Equal(t, models.ChangeRequestStatusPending, request.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryCreatePendingAlreadyOpen(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)

	// guarded insert matches zero rows when a pending request is open
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO change_requests")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.CreatePending(context.Background(), &models.ChangeRequest{
		ResultID:      "res-1",
		ProposedGrade: "A",
		RequestedBy:   "fac-1",
		Reason:        "regrade after appeal",
	})
	require.ErrorIs(t, err, ErrPendingRequestExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryResolveApprove(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	resolvedAt := time.Now().UTC()

	mock.ExpectBegin()
	requestRows := sqlmock.NewRows([]string{"id", "result_id", "proposed_grade", "requested_by", "reason", "status", "resolved_by", "requested_at", "resolved_at"}).
		AddRow("req-1", "res-1", "A", "fac-1", "regrade", "approved", "adm-1", resolvedAt.Add(-time.Hour), resolvedAt)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE change_requests")).
		WithArgs("req-1", models.ChangeRequestStatusApproved, "adm-1", resolvedAt, models.ChangeRequestStatusPending).
		WillReturnRows(requestRows)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE results SET grade = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("res-1", "A", resolvedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	resultRows := sqlmock.NewRows([]string{"id", "student_id", "section_id", "grade", "state", "published_at", "published_by", "created_at", "updated_at"}).
		AddRow("res-1", "stu-1", "sec-1", "A", "published", resolvedAt, "fac-1", resolvedAt, resolvedAt)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, section_id, grade, state, published_at, published_by, created_at, updated_at")).
		WithArgs("res-1").
		WillReturnRows(resultRows)
	mock.ExpectCommit()

	request, result, err := repo.Resolve(context.Background(), ResolveParams{
		ID: "req-1", Approve: true, ResolvedBy: "adm-1", ResolvedAt: resolvedAt,
	})
	require.NoError(t, err)
	require.Equal(t, models.ChangeRequestStatusApproved, request.Status)
	require.NotNil(t, result.Grade)
	require.Equal(t, "A", *result.Grade)
	require.Equal(t, models.ResultStatePublished, result.State)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryResolveRejectSkipsGradeWrite(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	resolvedAt := time.Now().UTC()

	mock.ExpectBegin()
	requestRows := sqlmock.NewRows([]string{"id", "result_id", "proposed_grade", "requested_by", "reason", "status", "resolved_by", "requested_at", "resolved_at"}).
		AddRow("req-1", "res-1", "A", "fac-1", "regrade", "rejected", "adm-1", resolvedAt.Add(-time.Hour), resolvedAt)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE change_requests")).
		WithArgs("req-1", models.ChangeRequestStatusRejected, "adm-1", resolvedAt, models.ChangeRequestStatusPending).
		WillReturnRows(requestRows)
	resultRows := sqlmock.NewRows([]string{"id", "student_id", "section_id", "grade", "state", "published_at", "published_by", "created_at", "updated_at"}).
		AddRow("res-1", "stu-1", "sec-1", "B", "published", resolvedAt, "fac-1", resolvedAt, resolvedAt)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, section_id, grade, state, published_at, published_by, created_at, updated_at")).
		WithArgs("res-1").
		WillReturnRows(resultRows)
	mock.ExpectCommit()

	request, result, err := repo.Resolve(context.Background(), ResolveParams{
		ID: "req-1", Approve: false, ResolvedBy: "adm-1", ResolvedAt: resolvedAt,
	})
	require.NoError(t, err)
	require.Equal(t, models.ChangeRequestStatusRejected, request.Status)
	require.NotNil(t, result.Grade)
	require.Equal(t, "B", *result.Grade)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryResolveAlreadyResolved(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	resolvedAt := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE change_requests")).
		WithArgs("req-1", models.ChangeRequestStatusApproved, "adm-1", resolvedAt, models.ChangeRequestStatusPending).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, _, err := repo.Resolve(context.Background(), ResolveParams{
		ID: "req-1", Approve: true, ResolvedBy: "adm-1", ResolvedAt: resolvedAt,
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "result_id", "proposed_grade", "requested_by", "reason", "status", "resolved_by", "requested_at", "resolved_at"}).
		AddRow("req-2", "res-2", "B+", "fac-1", "typo", "pending", nil, now, nil).
		AddRow("req-1", "res-1", "A", "fac-1", "regrade", "pending", nil, now.Add(-time.Hour), nil)
	mock.ExpectQuery(regexp.QuoteMeta("status IN ($1) AND requested_by = $2")).
		WithArgs(models.ChangeRequestStatusPending, "fac-1").
		WillReturnRows(rows)

	requests, err := repo.List(context.Background(), models.ChangeRequestFilter{
		Status:      []models.ChangeRequestStatus{models.ChangeRequestStatusPending},
		RequestedBy: "fac-1",
	})
	require.NoError(t, err)
	require.Len(t, requests, 2)
	require.Equal(t, "req-2", requests[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRequestRepositoryCountPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewChangeRequestRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM change_requests WHERE status = $1")).
		WithArgs(models.ChangeRequestStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.CountPending(context.Background())
	require.NoError(t, err)
	require.Equal(t, 7, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
