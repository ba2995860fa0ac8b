package wbrefresh

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ukaji3/wbrefresh-go/pkg/wbrefresh/automation"
	"github.com/ukaji3/wbrefresh-go/pkg/wbrefresh/models"
	"github.com/xuri/excelize/v2"
)

// CellTarget is a cell on the active sheet of a workbook inside the
// destination folder.
type CellTarget struct {
	File string
	Cell string
}

// Default calendar targets: the reference date lands in Calendar.xlsx!J1
// and is copied into Weeks.xlsx!A2.
var (
	CalendarReference = CellTarget{File: "Calendar.xlsx", Cell: "J1"}
	CalendarCopy      = CellTarget{File: "Weeks.xlsx", Cell: "A2"}
)

// ReferenceSunday returns the Sunday that starts the week two weeks before
// the week containing t (weeks run Monday to Sunday).
func ReferenceSunday(t time.Time) time.Time {
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-daysSinceMonday-8, 0, 0, 0, 0, t.Location())
}

// CellEditor opens workbooks for cell-level edits.
type CellEditor interface {
	Open(path string) (CellWorkbook, error)
}

// CellWorkbook is a workbook opened by a CellEditor. An empty sheet name
// means the active sheet.
type CellWorkbook interface {
	SetCellValue(sheet, cell string, value any) error
	// GetCellDate reads a cell holding a date.
	GetCellDate(sheet, cell string) (time.Time, error)
	Save() error
	Close() error
}

// FileEditor edits workbook files directly with excelize.
type FileEditor struct{}

// Open opens the workbook file.
func (FileEditor) Open(path string) (CellWorkbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	return &fileWorkbook{file: f}, nil
}

type fileWorkbook struct {
	file *excelize.File
}

func (w *fileWorkbook) sheet(name string) string {
	if name == "" {
		return w.file.GetSheetName(w.file.GetActiveSheetIndex())
	}
	return name
}

func (w *fileWorkbook) SetCellValue(sheet, cell string, value any) error {
	return w.file.SetCellValue(w.sheet(sheet), cell, value)
}

func (w *fileWorkbook) GetCellDate(sheet, cell string) (time.Time, error) {
	raw, err := w.file.GetCellValue(w.sheet(sheet), cell, excelize.Options{RawCellValue: true})
	if err != nil {
		return time.Time{}, err
	}
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s does not hold a date: %q", cell, raw)
	}
	return excelize.ExcelDateToTime(serial, false)
}

func (w *fileWorkbook) Save() error {
	return w.file.Save()
}

func (w *fileWorkbook) Close() error {
	return w.file.Close()
}

// HostEditor edits workbooks through an automation host.
type HostEditor struct {
	Host automation.Host
}

// Open opens the workbook in the host.
func (e HostEditor) Open(path string) (CellWorkbook, error) {
	wb, err := e.Host.OpenWorkbook(path)
	if err != nil {
		return nil, err
	}
	return &hostWorkbook{wb: wb}, nil
}

type hostWorkbook struct {
	wb automation.Workbook
}

func (w *hostWorkbook) SetCellValue(sheet, cell string, value any) error {
	return w.wb.SetCellValue(sheet, cell, value)
}

func (w *hostWorkbook) GetCellDate(sheet, cell string) (time.Time, error) {
	v, err := w.wb.GetCellValue(sheet, cell)
	if err != nil {
		return time.Time{}, err
	}
	switch d := v.(type) {
	case time.Time:
		return d, nil
	case float64:
		return excelize.ExcelDateToTime(d, false)
	}
	return time.Time{}, fmt.Errorf("%s does not hold a date: %v", cell, v)
}

func (w *hostWorkbook) Save() error {
	return w.wb.Save()
}

func (w *hostWorkbook) Close() error {
	defer w.wb.Release()
	return w.wb.Close(false)
}

// RunCalendarFile writes the reference date into the calendar workbooks in
// folder by editing the files directly. Any failure fails the run.
func RunCalendarFile(ctx context.Context, folder string, opts Options) (*models.Report, error) {
	opts = opts.withDefaults()
	report := newReport("calendar-file", folder, opts.Now())
	start := time.Now()
	err := updateCalendar(ctx, folder, FileEditor{}, opts, report)
	report.Elapsed = time.Since(start)
	report.Success = err == nil
	return report, err
}

// RunCalendar writes the reference date into the calendar workbooks in
// folder through an automation host. Any failure fails the run.
func RunCalendar(ctx context.Context, folder string, opts Options) (*models.Report, error) {
	opts = opts.withDefaults()
	report := newReport("calendar", folder, opts.Now())
	start := time.Now()
	err := func() error {
		host, err := acquireHost(opts, opts.Logger)
		if err != nil {
			report.Add(models.StepResult{Name: "host", Kind: "host", Status: models.StepFailed, Fatal: true, Error: err.Error()})
			Emit(opts.Logger, StatusFail, "Critical error: %v", err)
			return NewStepError("calendar", "host", err)
		}
		report.HostPID = host.PID()
		defer func() {
			if err := host.Close(); err != nil {
				Emit(opts.Logger, StatusWarn, "Automation host shutdown reported: %v", err)
				return
			}
			Emit(opts.Logger, StatusOK, "COM uninitialized")
		}()
		if err := host.SuppressPrompts(); err != nil {
			Emit(opts.Logger, StatusWarn, "Interactive prompts could not be disabled: %v", err)
		}
		return updateCalendar(ctx, folder, HostEditor{Host: host}, opts, report)
	}()
	report.Elapsed = time.Since(start)
	report.Success = err == nil
	return report, err
}

// updateCalendar writes the reference Sunday into the reference cell, then
// copies the date that cell holds after saving into the copy cell.
func updateCalendar(ctx context.Context, folder string, editor CellEditor, opts Options, report *models.Report) error {
	value := ReferenceSunday(opts.Now())
	for _, target := range []struct {
		title string
		CellTarget
	}{
		{"Calendar Sheet", CalendarReference},
		{"Week Sheet", CalendarCopy},
	} {
		if err := ctx.Err(); err != nil {
			return err
		}
		Emit(opts.Logger, StatusProgress, "=== Updating %s ===", target.title)
		start := time.Now()
		saved, err := writeCell(editor, filepath.Join(folder, target.File), target.Cell, value)
		res := models.StepResult{Name: target.File, Kind: "set-cell", Status: models.StepOK, Elapsed: time.Since(start)}
		if err != nil {
			res.Status = models.StepFailed
			res.Fatal = true
			res.Error = err.Error()
			report.Add(res)
			Emit(opts.Logger, StatusFail, "Error occurred: %v", err)
			return NewStepError(report.Workflow, target.File, err)
		}
		report.Add(res)
		Emit(opts.Logger, StatusDate, "%s: %s updated to %s", target.File, target.Cell, saved.Format("2006-01-02"))
		value = saved
	}
	return nil
}

// writeCell sets cell on the active sheet, saves, and returns the date the
// cell holds after the save.
func writeCell(editor CellEditor, path, cell string, value time.Time) (time.Time, error) {
	if _, err := os.Stat(path); err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	wb, err := editor.Open(path)
	if err != nil {
		return time.Time{}, err
	}
	if err := wb.SetCellValue("", cell, value); err != nil {
		wb.Close()
		return time.Time{}, err
	}
	if err := wb.Save(); err != nil {
		wb.Close()
		return time.Time{}, err
	}
	saved, err := wb.GetCellDate("", cell)
	if err != nil {
		wb.Close()
		return time.Time{}, fmt.Errorf("read back %s: %w", cell, err)
	}
	return saved, wb.Close()
}
