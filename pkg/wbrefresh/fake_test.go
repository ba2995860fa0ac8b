package wbrefresh

import (
	"fmt"

	"github.com/ukaji3/wbrefresh-go/pkg/wbrefresh/automation"
)

// fakeHost records every call made against it. Calls from the workbook and
// its children are appended to the same journal so tests can assert order.
type fakeHost struct {
	pid         int
	attached    bool
	workbook    *fakeWorkbook
	openErr     error
	suppressErr error
	calcErr     error
	closeErr    error

	journal    []string
	opened     []string
	suppressed int
	asyncWaits int
	calculated int
	closes     int
}

func newFakeHost() *fakeHost {
	h := &fakeHost{pid: 4242}
	h.workbook = &fakeWorkbook{
		host:     h,
		readback: map[string]any{},
		pivots:   map[string]*fakePivot{},
		cells:    map[string]any{},
	}
	return h
}

func (h *fakeHost) launcher() automation.Launcher {
	return func() (automation.Host, error) { return h, nil }
}

func (h *fakeHost) record(format string, args ...any) {
	h.journal = append(h.journal, fmt.Sprintf(format, args...))
}

func (h *fakeHost) PID() int { return h.pid }

func (h *fakeHost) Owned() bool { return !h.attached }

func (h *fakeHost) SuppressPrompts() error {
	h.suppressed++
	h.record("suppress")
	return h.suppressErr
}

func (h *fakeHost) OpenWorkbook(path string) (automation.Workbook, error) {
	h.record("open %s", path)
	if h.openErr != nil {
		return nil, h.openErr
	}
	h.opened = append(h.opened, path)
	return h.workbook, nil
}

func (h *fakeHost) CalculateUntilAsyncQueriesDone() error {
	h.asyncWaits++
	h.record("async")
	return nil
}

func (h *fakeHost) Calculate() error {
	h.record("calculate")
	if h.calcErr != nil {
		return h.calcErr
	}
	h.calculated++
	return nil
}

func (h *fakeHost) Close() error {
	h.closes++
	h.record("host close")
	return h.closeErr
}

type fakeWorkbook struct {
	host *fakeHost
	// readback overrides what GetCellValue returns for "sheet!cell".
	readback map[string]any
	conns    []*fakeConnection
	connErr  error
	pivots   map[string]*fakePivot
	cells    map[string]any
	calcErr  error
	saveErr  error

	calculated int
	saves      int
	closes     []bool
	released   int
}

func (w *fakeWorkbook) addPivot(sheet, name string) *fakePivot {
	p := &fakePivot{host: w.host, key: sheet + "/" + name, fields: map[string]*fakeField{}}
	w.pivots[p.key] = p
	return p
}

func (w *fakeWorkbook) Connections() ([]automation.Connection, error) {
	if w.connErr != nil {
		return nil, w.connErr
	}
	out := make([]automation.Connection, len(w.conns))
	for i, c := range w.conns {
		c.host = w.host
		out[i] = c
	}
	return out, nil
}

func (w *fakeWorkbook) PivotTable(sheet, name string) (automation.PivotTable, error) {
	p, ok := w.pivots[sheet+"/"+name]
	if !ok {
		return nil, fmt.Errorf("pivot table '%s' on '%s' not found", name, sheet)
	}
	return p, nil
}

func (w *fakeWorkbook) SetCellValue(sheet, cell string, value any) error {
	w.host.record("set %s!%s", sheet, cell)
	w.cells[sheet+"!"+cell] = value
	return nil
}

func (w *fakeWorkbook) GetCellValue(sheet, cell string) (any, error) {
	w.host.record("get %s!%s", sheet, cell)
	if v, ok := w.readback[sheet+"!"+cell]; ok {
		return v, nil
	}
	return w.cells[sheet+"!"+cell], nil
}

func (w *fakeWorkbook) Calculate() error {
	w.host.record("workbook calculate")
	if w.calcErr != nil {
		return w.calcErr
	}
	w.calculated++
	return nil
}

func (w *fakeWorkbook) Save() error {
	w.host.record("save")
	if w.saveErr != nil {
		return w.saveErr
	}
	w.saves++
	return nil
}

func (w *fakeWorkbook) Close(saveChanges bool) error {
	w.host.record("close %v", saveChanges)
	w.closes = append(w.closes, saveChanges)
	return nil
}

func (w *fakeWorkbook) Release() { w.released++ }

type fakeConnection struct {
	host       *fakeHost
	name       string
	refreshErr error
	noSignal   bool
	busyPolls  int

	refreshed int
	polls     int
	released  int
}

func (c *fakeConnection) Name() string { return c.name }

func (c *fakeConnection) Refresh() error {
	c.host.record("refresh %s", c.name)
	if c.refreshErr != nil {
		return c.refreshErr
	}
	c.refreshed++
	return nil
}

func (c *fakeConnection) Refreshing() (bool, error) {
	c.polls++
	if c.noSignal {
		return false, automation.ErrNoRefreshSignal
	}
	if c.busyPolls > 0 {
		c.busyPolls--
		return true, nil
	}
	return false, nil
}

func (c *fakeConnection) Release() { c.released++ }

type fakePivot struct {
	host     *fakeHost
	key      string
	fields   map[string]*fakeField
	cacheErr error
	tableErr error

	cacheRefreshes int
	tableRefreshes int
}

func (p *fakePivot) addField(name string, items ...string) *fakeField {
	f := &fakeField{host: p.host, key: p.key, items: items}
	p.fields[name] = f
	return f
}

func (p *fakePivot) RefreshCache() error {
	p.host.record("cache %s", p.key)
	if p.cacheErr != nil {
		return p.cacheErr
	}
	p.cacheRefreshes++
	return nil
}

func (p *fakePivot) RefreshTable() error {
	p.host.record("table %s", p.key)
	if p.tableErr != nil {
		return p.tableErr
	}
	p.tableRefreshes++
	return nil
}

func (p *fakePivot) Field(name string) (automation.PivotField, error) {
	f, ok := p.fields[name]
	if !ok {
		return nil, fmt.Errorf("pivot field '%s' not found", name)
	}
	return f, nil
}

func (p *fakePivot) Release() {}

type fakeField struct {
	host    *fakeHost
	key     string
	items   []string
	visible []string
	cleared int
}

func (f *fakeField) ClearAllFilters() error {
	f.cleared++
	f.host.record("clear %s", f.key)
	return nil
}

func (f *fakeField) ItemNames() ([]string, error) {
	return f.items, nil
}

func (f *fakeField) SetVisibleItems(items []string) error {
	f.host.record("visible %s", f.key)
	f.visible = items
	return nil
}

func (f *fakeField) Release() {}
