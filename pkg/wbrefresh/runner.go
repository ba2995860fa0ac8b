package wbrefresh

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/ukaji3/wbrefresh-go/pkg/wbrefresh/automation"
	"github.com/ukaji3/wbrefresh-go/pkg/wbrefresh/models"
	"github.com/ukaji3/wbrefresh-go/pkg/wbrefresh/parser"
)

// runner carries the state of one workflow run.
type runner struct {
	ctx     context.Context
	opts    Options
	profile Profile
	log     logrus.FieldLogger
	host    automation.Host
	report  *models.Report
}

func newReport(workflow, path string, now time.Time) *models.Report {
	return &models.Report{
		RunID:     uuid.NewString(),
		Workflow:  workflow,
		Path:      path,
		StartedAt: now,
	}
}

// Run executes profile against the workbook at path. The returned report is
// never nil. A non-nil error means the run hit a fatal condition: the host
// could not be acquired, the workbook could not be opened, or the workbook
// could not be saved and closed.
func Run(ctx context.Context, path string, profile Profile, opts Options) (*models.Report, error) {
	opts = opts.withDefaults()
	tag := profile.Tag
	if tag == "" {
		tag = profile.Name
	}
	r := &runner{
		ctx:     ctx,
		opts:    opts,
		profile: profile,
		log:     opts.Logger.WithField(FieldTag, tag),
		report:  newReport(profile.Name, path, opts.Now()),
	}
	start := time.Now()
	err := r.run(path)
	r.report.Elapsed = time.Since(start)
	r.report.Success = err == nil && (!profile.Strict || len(r.report.Failures()) == 0)
	return r.report, err
}

func (r *runner) run(path string) error {
	if !r.opts.SkipPreflight {
		r.preflight(path)
	}

	host, err := acquireHost(r.opts, r.log)
	if err != nil {
		r.fatal("host", "host", err)
		return NewStepError(r.profile.Name, "host", err)
	}
	r.host = host
	r.report.HostPID = host.PID()
	defer func() {
		if err := host.Close(); err != nil {
			Emit(r.log, StatusWarn, "Automation host shutdown reported: %v", err)
			return
		}
		Emit(r.log, StatusOK, "COM uninitialized")
	}()

	r.step("prompts", "prompts", func() error {
		return host.SuppressPrompts()
	}, "", "Interactive prompts could not be disabled")

	wb, err := r.open(path)
	if err != nil {
		return err
	}

	for _, s := range r.profile.Steps {
		if r.ctx.Err() != nil {
			r.report.Add(models.StepResult{Name: s.name(), Kind: string(s.Kind), Status: models.StepSkipped})
			continue
		}
		r.runStep(wb, s)
	}

	return r.finish(wb)
}

// acquireHost launches the automation host and reports its PID. Only a
// host started by this run is handed to OnHostStarted.
func acquireHost(opts Options, log logrus.FieldLogger) (automation.Host, error) {
	host, err := opts.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHostUnavailable, err)
	}
	pid := host.PID()
	if !host.Owned() {
		Emit(log.WithField(FieldTag, ""), StatusOK, "Attached to Excel PID:%d", pid)
		return host, nil
	}
	Emit(log.WithField(FieldTag, ""), StatusOK, "Excel started with PID:%d", pid)
	if opts.OnHostStarted != nil {
		opts.OnHostStarted(pid)
	}
	return host, nil
}

// preflight warns about profile targets missing from the package. It never
// fails the run; unreadable packages are skipped.
func (r *runner) preflight(path string) {
	wb, err := parser.ReadWorkbook(path)
	if err != nil {
		return
	}
	for _, s := range r.profile.Steps {
		if s.Sheet == "" {
			continue
		}
		sheet, ok := wb.Sheet(s.Sheet)
		if !ok {
			Emit(r.log, StatusWarn, "Preflight: sheet '%s' not found in %s", s.Sheet, wb.BookName)
			continue
		}
		// OLAP pivots keep their definition part too, so a miss here is real.
		if s.Pivot != "" && !sheet.HasPivotTable(s.Pivot) {
			Emit(r.log, StatusWarn, "Preflight: pivot table '%s' not found on sheet '%s'", s.Pivot, s.Sheet)
		}
	}
}

func (r *runner) open(path string) (automation.Workbook, error) {
	start := time.Now()
	if _, err := os.Stat(path); err != nil {
		err = fmt.Errorf("%w: %s", ErrFileNotFound, path)
		r.fatal("open", "open", err)
		return nil, NewStepError(r.profile.Name, "open", err)
	}

	Emit(r.log, StatusProgress, "Opening workbook: %s", filepath.Base(path))
	wb, err := r.host.OpenWorkbook(path)
	if err != nil {
		r.fatal("open", "open", err)
		return nil, NewStepError(r.profile.Name, "open", err)
	}
	r.report.Add(models.StepResult{Name: "open", Kind: "open", Status: models.StepOK, Elapsed: time.Since(start)})
	Emit(r.log, StatusOK, "Workbook opened successfully")
	return wb, nil
}

func (r *runner) runStep(wb automation.Workbook, s Step) {
	switch s.Kind {
	case StepRefreshConnections:
		r.refreshConnections(wb)
	case StepDateFilter:
		Emit(r.log, StatusProgress, "Updating %s", s.name())
		r.step(s.name(), string(s.Kind), func() error {
			return r.updateDateFilter(wb, s)
		}, fmt.Sprintf("%s updated", s.name()), fmt.Sprintf("%s filter update failed", s.name()))
	case StepPivotRefresh:
		Emit(r.log, StatusProgress, "Refreshing %s", s.name())
		r.step(s.name(), string(s.Kind), func() error {
			return r.refreshPivot(wb, s)
		}, fmt.Sprintf("%s refreshed", s.name()), fmt.Sprintf("%s refresh failed", s.name()))
	case StepRecalculate:
		r.step(s.name(), string(s.Kind), func() error {
			return r.recalculate(wb)
		}, "Calculations completed", "Calculation failed")
	default:
		r.step(s.name(), string(s.Kind), func() error {
			return fmt.Errorf("unknown step kind %q", s.Kind)
		}, "", "Step skipped")
	}
}

// step runs fn as a recoverable step and records its result.
func (r *runner) step(name, kind string, fn func() error, okMsg, failMsg string) {
	start := time.Now()
	err := fn()
	res := models.StepResult{Name: name, Kind: kind, Status: models.StepOK, Elapsed: time.Since(start)}
	if err != nil {
		res.Status = models.StepFailed
		res.Error = err.Error()
		Emit(r.log.WithError(NewStepError(r.profile.Name, name, err)), StatusFail, "%s: %v", failMsg, err)
	} else if okMsg != "" {
		Emit(r.log, StatusOK, "%s", okMsg)
	}
	r.report.Add(res)
}

func (r *runner) fatal(name, kind string, err error) {
	r.report.Add(models.StepResult{Name: name, Kind: kind, Status: models.StepFailed, Fatal: true, Error: err.Error()})
	Emit(r.log, StatusFail, "Critical error: %v", err)
}

func (r *runner) refreshConnections(wb automation.Workbook) {
	conns, err := wb.Connections()
	if err != nil {
		r.step("connections", string(StepRefreshConnections), func() error { return err }, "", "Connections unavailable")
		return
	}
	for i, conn := range conns {
		idx := i + 1
		name := fmt.Sprintf("connection %d", idx)
		if r.ctx.Err() != nil {
			r.report.Add(models.StepResult{Name: name, Kind: string(StepRefreshConnections), Status: models.StepSkipped})
			conn.Release()
			continue
		}
		Emit(r.log, StatusProgress, "Refreshing connection %d: %s", idx, conn.Name())
		r.step(name, string(StepRefreshConnections), func() error {
			if err := conn.Refresh(); err != nil {
				return err
			}
			r.awaitConnection(conn)
			return nil
		}, fmt.Sprintf("Connection %d refreshed", idx), fmt.Sprintf("Connection %d error", idx))
		conn.Release()
	}
}

// awaitConnection waits for a background refresh to settle. It polls the
// connection's refreshing signal up to RefreshTimeout and falls back to the
// fixed SettleDelay when no signal is available.
func (r *runner) awaitConnection(conn automation.Connection) {
	deadline := time.Now().Add(r.opts.RefreshTimeout)
	for {
		busy, err := conn.Refreshing()
		if err != nil {
			if !errors.Is(err, automation.ErrNoRefreshSignal) {
				r.log.WithError(err).Debug("refreshing signal unreadable, using fixed delay")
			}
			sleepContext(r.ctx, r.opts.SettleDelay)
			return
		}
		if !busy {
			return
		}
		if time.Now().After(deadline) {
			Emit(r.log, StatusWarn, "Connection '%s' still refreshing after %s", conn.Name(), r.opts.RefreshTimeout)
			return
		}
		if !sleepContext(r.ctx, r.opts.PollInterval) {
			return
		}
	}
}

func (r *runner) updateDateFilter(wb automation.Workbook, s Step) error {
	pt, err := wb.PivotTable(s.Sheet, s.Pivot)
	if err != nil {
		return err
	}
	defer pt.Release()

	field, err := pt.Field(s.Field)
	if err != nil {
		return err
	}
	defer field.Release()

	if s.ClearFilters {
		if err := field.ClearAllFilters(); err != nil {
			return err
		}
	}

	items, err := field.ItemNames()
	if err != nil {
		return err
	}
	Emit(r.log, StatusDate, "Dates found: %d", len(items))

	visible := VisibleItems(items)
	if len(visible) == 0 {
		return ErrNoVisibleItems
	}
	return field.SetVisibleItems(visible)
}

func (r *runner) refreshPivot(wb automation.Workbook, s Step) error {
	pt, err := wb.PivotTable(s.Sheet, s.Pivot)
	if err != nil {
		return err
	}
	defer pt.Release()

	if s.RefreshCache {
		if err := pt.RefreshCache(); err != nil {
			return err
		}
	}
	if s.RefreshTable {
		if err := pt.RefreshTable(); err != nil {
			return err
		}
	}
	if s.WaitAsync {
		return r.host.CalculateUntilAsyncQueriesDone()
	}
	return nil
}

// recalculate tries a full application recalculation, then the workbook.
func (r *runner) recalculate(wb automation.Workbook) error {
	hostErr := r.host.Calculate()
	if hostErr == nil {
		return nil
	}
	if err := wb.Calculate(); err != nil {
		return errors.Join(hostErr, err)
	}
	Emit(r.log, StatusOK, "Manual calculation completed")
	return nil
}

// finish saves and closes the workbook. A cancelled run closes without
// saving.
func (r *runner) finish(wb automation.Workbook) error {
	defer func() {
		wb.Release()
		runtime.GC()
	}()

	if err := r.ctx.Err(); err != nil {
		_ = wb.Close(false)
		r.fatal("save", "save", err)
		return NewStepError(r.profile.Name, "save", err)
	}

	Emit(r.log, StatusProgress, "Finalizing & saving")
	start := time.Now()
	if err := wb.Save(); err != nil {
		_ = wb.Close(false)
		r.fatal("save", "save", err)
		return NewStepError(r.profile.Name, "save", err)
	}
	if err := wb.Close(false); err != nil {
		r.fatal("close", "close", err)
		return NewStepError(r.profile.Name, "close", err)
	}
	r.report.Add(models.StepResult{Name: "save", Kind: "save", Status: models.StepOK, Elapsed: time.Since(start)})
	Emit(r.log, StatusOK, "Workbook saved and closed")
	return nil
}

// sleepContext waits for d or until ctx is done. It reports whether the
// full delay elapsed.
func sleepContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
