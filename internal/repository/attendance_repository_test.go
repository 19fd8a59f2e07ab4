package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sims-core-api/internal/models"
)

func TestAttendanceRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance_facts")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	fact := &models.AttendanceFact{
		StudentID: "stu-1",
		SectionID: "sec-1",
		Date:      time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Present:   true,
	}
	require.NoError(t, repo.Create(context.Background(), fact))
	require.NotEmpty(t, fact.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance_facts")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.AttendanceFact{
		StudentID: "stu-1",
		SectionID: "sec-1",
		Date:      time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, ErrDuplicateFact)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryPairSummary(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("COUNT(*) FILTER (WHERE present) AS present, COUNT(*) AS total")).
		WithArgs("stu-1", "sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"present", "total"}).AddRow(7, 10))

	summary, err := repo.PairSummary(context.Background(), "stu-1", "sec-1")
	require.NoError(t, err)
	require.Equal(t, 7, summary.Present)
	require.Equal(t, 10, summary.Total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryIneligibleCount(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY student_id")).
		WithArgs(75.0).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.IneligibleCount(context.Background(), 75)
	require.NoError(t, err)
	require.Equal(t, 3, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
