package exportsvc

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sutdhousing/portal/core/application"
	"github.com/sutdhousing/portal/core/period"
	"github.com/sutdhousing/portal/core/record"
	"github.com/sutdhousing/portal/core/student"
)

func readRows(t *testing.T, data []byte, sheet string) [][]string {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{sheet}, f.GetSheetList())
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func TestApplications(t *testing.T) {
	now := time.Date(2021, 3, 1, 9, 30, 0, 0, time.UTC)
	forms := []application.Form{
		{
			UID:       "f1",
			StudentID: "1004123",
			Status:    application.StatusSubmitted,
			ApplicablePeriod: period.TimePeriod{
				StartDate: time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(2021, 8, 31, 0, 0, 0, 0, time.UTC),
			},
			RoomProfile:      student.DefaultRoomProfile(),
			LifestyleProfile: student.DefaultLifestyleProfile(),
			CreatedAt:        now,
		},
		{UID: "f2", StudentID: "1004124", Status: application.StatusWithdrawn, CreatedAt: now},
	}

	data, err := Applications(forms)
	require.NoError(t, err)

	rows := readRows(t, data, "Applications")
	require.Len(t, rows, 3)
	assert.Equal(t, applicationHeaders, rows[0])
	assert.Equal(t, []string{"f1", "1004123", application.StatusSubmitted, "2021-05-01", "2021-08-31"}, rows[1][:5])
	assert.Equal(t, "f2", rows[2][0])
}

func TestRecords(t *testing.T) {
	data, err := Records(nil)
	require.NoError(t, err)
	rows := readRows(t, data, "Disciplinary Records")
	require.Len(t, rows, 1)
	assert.Equal(t, recordHeaders, rows[0])

	data, err = Records([]record.DisciplinaryRecord{{
		UID: "r1", StudentID: "1004123", RecordType: "NOISE", Description: "loud music",
		PointsDeduction: 5, CreatedBy: "admin", CreatedAt: time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC),
	}})
	require.NoError(t, err)
	rows = readRows(t, data, "Disciplinary Records")
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"r1", "1004123", "NOISE", "loud music", "5", "admin", "2021-03-01T00:00:00Z"}, rows[1])
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "disciplinary_records_20210301.xlsx",
		Filename("Disciplinary Records", time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)))
}
