package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sims-core-api/internal/models"
	"github.com/noah-isme/sims-core-api/internal/repository"
	appErrors "github.com/noah-isme/sims-core-api/pkg/errors"
)

type mockAttendanceWriter struct {
	facts map[string]models.AttendanceFact
}

func (m *mockAttendanceWriter) Create(ctx context.Context, fact *models.AttendanceFact) error {
	if m.facts == nil {
		m.facts = make(map[string]models.AttendanceFact)
	}
	key := fact.StudentID + fact.SectionID + fact.Date.Format("2006-01-02")
	if _, ok := m.facts[key]; ok {
		return repository.ErrDuplicateFact
	}
	if fact.ID == "" {
		fact.ID = "fact-1"
	}
	m.facts[key] = *fact
	return nil
}

func TestAttendanceServiceRecord(t *testing.T) {
	writer := &mockAttendanceWriter{}
	svc := NewAttendanceService(writer, nil, nil)

	fact, err := svc.Record(context.Background(), RecordAttendanceRequest{
		StudentID: "stu-1",
		SectionID: "sec-1",
		Date:      "2026-09-07",
		Present:   true,
	})
	require.NoError(t, err)
	assert.True(t, fact.Present)
	assert.Equal(t, "2026-09-07", fact.Date.Format("2006-01-02"))
}

func TestAttendanceServiceRecordDuplicate(t *testing.T) {
	writer := &mockAttendanceWriter{}
	svc := NewAttendanceService(writer, nil, nil)

	req := RecordAttendanceRequest{StudentID: "stu-1", SectionID: "sec-1", Date: "2026-09-07", Present: true}
	_, err := svc.Record(context.Background(), req)
	require.NoError(t, err)

	req.Present = false
	_, err = svc.Record(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestAttendanceServiceRecordBadDate(t *testing.T) {
	svc := NewAttendanceService(&mockAttendanceWriter{}, nil, nil)

	_, err := svc.Record(context.Background(), RecordAttendanceRequest{
		StudentID: "stu-1",
		SectionID: "sec-1",
		Date:      "07-09-2026",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
