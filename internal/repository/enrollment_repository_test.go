package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sims-core-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryCreateWithCapacityCheck(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity FROM sections WHERE id = $1 FOR UPDATE")).
		WithArgs("sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(30))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE section_id = $1 AND status = $2")).
		WithArgs("sec-1", models.EnrollmentStatusEnrolled).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	enrollment := &models.Enrollment{StudentID: "stu-1", SectionID: "sec-1"}
	require.NoError(t, repo.CreateWithCapacityCheck(context.Background(), enrollment))
	require.NotEmpty(t, enrollment.ID)
	require.Equal(t, models.EnrollmentStatusEnrolled, enrollment.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateSectionFull(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity FROM sections WHERE id = $1 FOR UPDATE")).
		WithArgs("sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(30))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE section_id = $1 AND status = $2")).
		WithArgs("sec-1", models.EnrollmentStatusEnrolled).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(30))
	mock.ExpectRollback()

	err := repo.CreateWithCapacityCheck(context.Background(), &models.Enrollment{StudentID: "stu-1", SectionID: "sec-1"})
	require.ErrorIs(t, err, ErrSectionFull)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateDuplicatePair(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity FROM sections WHERE id = $1 FOR UPDATE")).
		WithArgs("sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(30))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE section_id = $1 AND status = $2")).
		WithArgs("sec-1", models.EnrollmentStatusEnrolled).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.CreateWithCapacityCheck(context.Background(), &models.Enrollment{StudentID: "stu-1", SectionID: "sec-1"})
	require.ErrorIs(t, err, ErrActiveEnrollmentExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryWithdraw(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $2, withdrawn_at = $3")).
		WithArgs("enr-1", models.EnrollmentStatusWithdrawn, now, models.EnrollmentStatusEnrolled).
		WillReturnResult(sqlmock.NewResult(0, 1))

	changed, err := repo.Withdraw(context.Background(), "enr-1", now)
	require.NoError(t, err)
	require.True(t, changed)

	// withdrawing again matches no rows
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $2, withdrawn_at = $3")).
		WithArgs("enr-1", models.EnrollmentStatusWithdrawn, now, models.EnrollmentStatusEnrolled).
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err = repo.Withdraw(context.Background(), "enr-1", now)
	require.NoError(t, err)
	require.False(t, changed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExistsActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments")).
		WithArgs("stu-1", "sec-1", models.EnrollmentStatusEnrolled).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsActive(context.Background(), "stu-1", "sec-1")
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments")).
		WithArgs("stu-2", "sec-1", models.EnrollmentStatusEnrolled).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err = repo.ExistsActive(context.Background(), "stu-2", "sec-1")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryRoster(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "student_id", "section_id", "status", "enrolled_at", "withdrawn_at"}).
		AddRow("enr-1", "stu-1", "sec-1", "enrolled", now, nil).
		AddRow("enr-2", "stu-2", "sec-1", "enrolled", now, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, section_id, status, enrolled_at, withdrawn_at")).
		WithArgs("sec-1", models.EnrollmentStatusEnrolled).
		WillReturnRows(rows)

	roster, err := repo.Roster(context.Background(), "sec-1")
	require.NoError(t, err)
	require.Len(t, roster, 2)
	require.Equal(t, "stu-1", roster[0].StudentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateMissingSection(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT capacity FROM sections WHERE id = $1 FOR UPDATE")).
		WithArgs("missing").
		WillReturnError(errors.New("sql: no rows in result set"))
	mock.ExpectRollback()

	err := repo.CreateWithCapacityCheck(context.Background(), &models.Enrollment{StudentID: "stu-1", SectionID: "missing"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
