package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sims-core-api/internal/models"
)

func TestSectionRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSectionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sections")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	teacherID := "fac-1"
	section := &models.Section{
		CourseCode:  "CS101",
		CourseTitle: "Intro to Computing",
		Term:        "2026-FALL",
		TeacherID:   &teacherID,
		TeacherName: "D. Hartono",
		Capacity:    30,
	}
	require.NoError(t, repo.Create(context.Background(), section))
	require.NotEmpty(t, section.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSectionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sections")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Section{CourseCode: "CS101", Term: "2026-FALL"})
	require.ErrorIs(t, err, ErrSectionExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryCreateTermDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSectionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO terms")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.CreateTerm(context.Background(), &models.Term{Name: "2026-FALL", Status: models.TermStatusOpen})
	require.ErrorIs(t, err, ErrTermExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryFindTerm(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSectionRepository(db)
	start := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, status, start_date, end_date FROM terms WHERE name = $1")).
		WithArgs("2026-FALL").
		WillReturnRows(sqlmock.NewRows([]string{"name", "status", "start_date", "end_date"}).
			AddRow("2026-FALL", "open", start, start.AddDate(0, 4, 0)))

	term, err := repo.FindTerm(context.Background(), "2026-FALL")
	require.NoError(t, err)
	require.Equal(t, models.TermStatusOpen, term.Status)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, status, start_date, end_date FROM terms WHERE name = $1")).
		WithArgs("1999-FALL").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.FindTerm(context.Background(), "1999-FALL")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
