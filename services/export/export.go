// Package exportsvc renders listings as xlsx workbooks.
package exportsvc

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/sutdhousing/portal/core/application"
	"github.com/sutdhousing/portal/core/record"
)

// ContentType is the media type of the generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const dateLayout = "2006-01-02"

var (
	applicationHeaders = []string{
		"UID", "Student ID", "Status", "Period Start", "Period End", "Room Type", "Block", "Level",
		"Window Facing", "Sleep Time", "Wakeup Time", "Remarks", "Submitted At",
	}
	recordHeaders = []string{
		"UID", "Student ID", "Record Type", "Description", "Points Deduction", "Created By", "Created At",
	}
)

// Applications writes one row per form.
func Applications(forms []application.Form) ([]byte, error) {
	rows := make([][]interface{}, 0, len(forms))
	for _, f := range forms {
		rows = append(rows, []interface{}{
			f.UID,
			f.StudentID,
			f.Status,
			f.ApplicablePeriod.StartDate.Format(dateLayout),
			f.ApplicablePeriod.EndDate.Format(dateLayout),
			f.RoomProfile.RoomType,
			f.RoomProfile.Block,
			f.RoomProfile.LevelRange,
			f.RoomProfile.WindowFacing,
			f.LifestyleProfile.SleepTime,
			strconv.Itoa(f.LifestyleProfile.WakeupTime) + ":00",
			f.Remarks,
			f.CreatedAt.Format(time.RFC3339),
		})
	}
	return writeSheet("Applications", applicationHeaders, rows)
}

// Records writes one row per disciplinary record.
func Records(records []record.DisciplinaryRecord) ([]byte, error) {
	rows := make([][]interface{}, 0, len(records))
	for _, r := range records {
		rows = append(rows, []interface{}{
			r.UID,
			r.StudentID,
			r.RecordType,
			r.Description,
			r.PointsDeduction,
			r.CreatedBy,
			r.CreatedAt.Format(time.RFC3339),
		})
	}
	return writeSheet("Disciplinary Records", recordHeaders, rows)
}

// Filename returns a dated xlsx file name for prefix.
func Filename(prefix string, now time.Time) string {
	return strings.ReplaceAll(strings.ToLower(prefix), " ", "_") + "_" + now.Format("20060102") + ".xlsx"
}

func writeSheet(name string, headers []string, rows [][]interface{}) (_ []byte, err error) {
	f := excelize.NewFile()
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = errors.Wrap(cErr, "closing workbook")
		}
	}()

	idx, err := f.NewSheet(name)
	if err != nil {
		return nil, errors.Wrap(err, "creating sheet")
	}
	f.SetActiveSheet(idx)
	if err = f.DeleteSheet("Sheet1"); err != nil {
		return nil, errors.Wrap(err, "deleting default sheet")
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating header style")
	}

	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err = f.SetSheetRow(name, "A1", &header); err != nil {
		return nil, errors.Wrap(err, "writing header")
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return nil, errors.Wrap(err, "naming last column")
	}
	if err = f.SetCellStyle(name, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, errors.Wrap(err, "styling header")
	}
	if err = f.SetColWidth(name, "A", lastCol, 18); err != nil {
		return nil, errors.Wrap(err, "setting column width")
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, errors.Wrap(err, "naming cell")
		}
		if err = f.SetSheetRow(name, cell, &rows[i]); err != nil {
			return nil, errors.Wrapf(err, "writing row %d", i+2)
		}
	}

	// freeze header
	if err = f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, errors.Wrap(err, "freezing header")
	}

	var buf bytes.Buffer
	if _, err = f.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "writing workbook")
	}
	return buf.Bytes(), nil
}
