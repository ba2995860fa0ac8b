//go:build windows

package automation

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"golang.org/x/sys/windows"
)

const (
	xlCalculationAutomatic = -4105

	xlConnectionTypeOLEDB = 1
	xlConnectionTypeODBC  = 2

	sFalse = 0x00000001
)

type oleHost struct {
	application *ole.IDispatch
	pid         int
	owned       bool
	// saved holds the prompt settings of an attached host before
	// SuppressPrompts changed them.
	saved []savedProperty
}

type savedProperty struct {
	name  string
	value any
}

func startPlatform() (Host, error) {
	return newOleHost(false)
}

func attachPlatform() (Host, error) {
	return newOleHost(true)
}

func newOleHost(attach bool) (Host, error) {
	runtime.LockOSThread()
	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		var oleErr *ole.OleError
		if !errors.As(err, &oleErr) || oleErr.Code() != sFalse {
			runtime.UnlockOSThread()
			return nil, fmt.Errorf("failed to initialize COM: %w", err)
		}
	}
	fail := func(err error) (Host, error) {
		ole.CoUninitialize()
		runtime.UnlockOSThread()
		return nil, err
	}

	if attach {
		unknown, err := oleutil.GetActiveObject("Excel.Application")
		if err == nil {
			app, err := unknown.QueryInterface(ole.IID_IDispatch)
			unknown.Release()
			if err == nil {
				return &oleHost{application: app, pid: windowPID(app)}, nil
			}
		}
	}

	unknown, err := oleutil.CreateObject("Excel.Application")
	if err != nil {
		return fail(fmt.Errorf("failed to launch Excel application: %w", err))
	}
	app, err := unknown.QueryInterface(ole.IID_IDispatch)
	unknown.Release()
	if err != nil {
		return fail(fmt.Errorf("failed to query Excel interface: %w", err))
	}
	return &oleHost{application: app, pid: windowPID(app), owned: true}, nil
}

// windowPID resolves the host process through its main window handle.
func windowPID(app *ole.IDispatch) int {
	hwnd, err := oleutil.GetProperty(app, "Hwnd")
	if err != nil {
		return 0
	}
	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(windows.HWND(hwnd.Val), &pid); err != nil {
		return 0
	}
	return int(pid)
}

func (h *oleHost) PID() int {
	return h.pid
}

func (h *oleHost) Owned() bool {
	return h.owned
}

func (h *oleHost) SuppressPrompts() error {
	props := []string{"DisplayAlerts", "AskToUpdateLinks", "EnableEvents"}
	if h.owned {
		props = append([]string{"Visible"}, props...)
	}
	var errs []error
	for _, prop := range props {
		if !h.owned {
			v, err := oleutil.GetProperty(h.application, prop)
			if err != nil {
				errs = append(errs, fmt.Errorf("failed to read %s: %w", prop, err))
				continue
			}
			h.saved = append(h.saved, savedProperty{name: prop, value: v.Value()})
		}
		if _, err := oleutil.PutProperty(h.application, prop, false); err != nil {
			errs = append(errs, fmt.Errorf("failed to set %s: %w", prop, err))
		}
	}
	return errors.Join(errs...)
}

func (h *oleHost) OpenWorkbook(path string) (Workbook, error) {
	workbooksProp, err := oleutil.GetProperty(h.application, "Workbooks")
	if err != nil {
		return nil, fmt.Errorf("failed to get Workbooks: %w", err)
	}
	workbooks := workbooksProp.ToIDispatch()
	defer workbooks.Release()

	// Open(FileName, UpdateLinks, ReadOnly)
	wb, err := oleutil.CallMethod(workbooks, "Open", path, 0, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	return &oleWorkbook{workbook: wb.ToIDispatch()}, nil
}

func (h *oleHost) CalculateUntilAsyncQueriesDone() error {
	if _, err := oleutil.CallMethod(h.application, "CalculateUntilAsyncQueriesDone"); err != nil {
		return fmt.Errorf("failed to wait for async queries: %w", err)
	}
	return nil
}

func (h *oleHost) Calculate() error {
	if _, err := oleutil.PutProperty(h.application, "Calculation", xlCalculationAutomatic); err != nil {
		return fmt.Errorf("failed to set Calculation: %w", err)
	}
	if _, err := oleutil.CallMethod(h.application, "Calculate"); err != nil {
		return fmt.Errorf("failed to calculate: %w", err)
	}
	return nil
}

func (h *oleHost) Close() error {
	var err error
	if h.application != nil {
		if h.owned {
			if _, qerr := oleutil.CallMethod(h.application, "Quit"); qerr != nil {
				err = fmt.Errorf("failed to quit Excel: %w", qerr)
			}
		} else {
			err = h.restorePrompts()
		}
		h.application.Release()
		h.application = nil
	}
	ole.CoUninitialize()
	runtime.UnlockOSThread()
	return err
}

func (h *oleHost) restorePrompts() error {
	var errs []error
	for _, p := range h.saved {
		if _, err := oleutil.PutProperty(h.application, p.name, p.value); err != nil {
			errs = append(errs, fmt.Errorf("failed to restore %s: %w", p.name, err))
		}
	}
	h.saved = nil
	return errors.Join(errs...)
}

type oleWorkbook struct {
	workbook *ole.IDispatch
}

func (w *oleWorkbook) Connections() ([]Connection, error) {
	connsProp, err := oleutil.GetProperty(w.workbook, "Connections")
	if err != nil {
		return nil, fmt.Errorf("failed to get Connections: %w", err)
	}
	conns := connsProp.ToIDispatch()
	defer conns.Release()

	countProp, err := oleutil.GetProperty(conns, "Count")
	if err != nil {
		return nil, fmt.Errorf("failed to get Connections.Count: %w", err)
	}
	count := int(countProp.Val)

	result := make([]Connection, 0, count)
	for i := 1; i <= count; i++ {
		itemProp, err := oleutil.GetProperty(conns, "Item", i)
		if err != nil {
			for _, c := range result {
				c.Release()
			}
			return nil, fmt.Errorf("failed to get connection %d: %w", i, err)
		}
		conn := itemProp.ToIDispatch()
		name := ""
		if nameProp, err := oleutil.GetProperty(conn, "Name"); err == nil {
			name = nameProp.ToString()
		}
		result = append(result, &oleConnection{conn: conn, name: name})
	}
	return result, nil
}

func (w *oleWorkbook) PivotTable(sheet, name string) (PivotTable, error) {
	ws, err := w.sheet(sheet)
	if err != nil {
		return nil, err
	}
	defer ws.Release()

	pt, err := oleutil.CallMethod(ws, "PivotTables", name)
	if err != nil {
		return nil, fmt.Errorf("failed to get pivot table '%s' on '%s': %w", name, sheet, err)
	}
	return &olePivotTable{table: pt.ToIDispatch()}, nil
}

func (w *oleWorkbook) sheet(name string) (*ole.IDispatch, error) {
	if name == "" {
		active, err := oleutil.GetProperty(w.workbook, "ActiveSheet")
		if err != nil {
			return nil, fmt.Errorf("failed to get ActiveSheet: %w", err)
		}
		return active.ToIDispatch(), nil
	}
	ws, err := oleutil.GetProperty(w.workbook, "Sheets", name)
	if err != nil {
		return nil, fmt.Errorf("failed to get sheet '%s': %w", name, err)
	}
	return ws.ToIDispatch(), nil
}

func (w *oleWorkbook) cellRange(sheet, cell string) (*ole.IDispatch, error) {
	ws, err := w.sheet(sheet)
	if err != nil {
		return nil, err
	}
	defer ws.Release()
	rng, err := oleutil.GetProperty(ws, "Range", cell)
	if err != nil {
		return nil, fmt.Errorf("failed to get range %s: %w", cell, err)
	}
	return rng.ToIDispatch(), nil
}

func (w *oleWorkbook) SetCellValue(sheet, cell string, value any) error {
	rng, err := w.cellRange(sheet, cell)
	if err != nil {
		return err
	}
	defer rng.Release()
	if _, err := oleutil.PutProperty(rng, "Value", value); err != nil {
		return fmt.Errorf("failed to set %s: %w", cell, err)
	}
	return nil
}

func (w *oleWorkbook) GetCellValue(sheet, cell string) (any, error) {
	rng, err := w.cellRange(sheet, cell)
	if err != nil {
		return nil, err
	}
	defer rng.Release()
	v, err := oleutil.GetProperty(rng, "Value")
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", cell, err)
	}
	return v.Value(), nil
}

func (w *oleWorkbook) Calculate() error {
	if _, err := oleutil.CallMethod(w.workbook, "Calculate"); err != nil {
		return fmt.Errorf("failed to calculate workbook: %w", err)
	}
	return nil
}

func (w *oleWorkbook) Save() error {
	if _, err := oleutil.CallMethod(w.workbook, "Save"); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func (w *oleWorkbook) Close(saveChanges bool) error {
	if _, err := oleutil.CallMethod(w.workbook, "Close", saveChanges); err != nil {
		return fmt.Errorf("failed to close workbook: %w", err)
	}
	return nil
}

func (w *oleWorkbook) Release() {
	if w.workbook != nil {
		w.workbook.Release()
		w.workbook = nil
	}
}

type oleConnection struct {
	conn *ole.IDispatch
	name string
}

func (c *oleConnection) Name() string {
	return c.name
}

func (c *oleConnection) Refresh() error {
	if _, err := oleutil.CallMethod(c.conn, "Refresh"); err != nil {
		return fmt.Errorf("failed to refresh connection '%s': %w", c.name, err)
	}
	return nil
}

func (c *oleConnection) Refreshing() (bool, error) {
	typeProp, err := oleutil.GetProperty(c.conn, "Type")
	if err != nil {
		return false, ErrNoRefreshSignal
	}
	var member string
	switch typeProp.Val {
	case xlConnectionTypeOLEDB:
		member = "OLEDBConnection"
	case xlConnectionTypeODBC:
		member = "ODBCConnection"
	default:
		return false, ErrNoRefreshSignal
	}
	sub, err := oleutil.GetProperty(c.conn, member)
	if err != nil {
		return false, ErrNoRefreshSignal
	}
	inner := sub.ToIDispatch()
	defer inner.Release()
	refreshing, err := oleutil.GetProperty(inner, "Refreshing")
	if err != nil {
		return false, fmt.Errorf("failed to read Refreshing: %w", err)
	}
	return refreshing.Val != 0, nil
}

func (c *oleConnection) Release() {
	if c.conn != nil {
		c.conn.Release()
		c.conn = nil
	}
}

type olePivotTable struct {
	table *ole.IDispatch
}

func (p *olePivotTable) RefreshCache() error {
	cacheProp, err := oleutil.CallMethod(p.table, "PivotCache")
	if err != nil {
		return fmt.Errorf("failed to get PivotCache: %w", err)
	}
	cache := cacheProp.ToIDispatch()
	defer cache.Release()
	if _, err := oleutil.CallMethod(cache, "Refresh"); err != nil {
		return fmt.Errorf("failed to refresh pivot cache: %w", err)
	}
	return nil
}

func (p *olePivotTable) RefreshTable() error {
	if _, err := oleutil.CallMethod(p.table, "RefreshTable"); err != nil {
		return fmt.Errorf("failed to refresh pivot table: %w", err)
	}
	return nil
}

func (p *olePivotTable) Field(name string) (PivotField, error) {
	f, err := oleutil.CallMethod(p.table, "PivotFields", name)
	if err != nil {
		return nil, fmt.Errorf("failed to get pivot field '%s': %w", name, err)
	}
	return &olePivotField{field: f.ToIDispatch()}, nil
}

func (p *olePivotTable) Release() {
	if p.table != nil {
		p.table.Release()
		p.table = nil
	}
}

type olePivotField struct {
	field *ole.IDispatch
}

func (f *olePivotField) ClearAllFilters() error {
	if _, err := oleutil.CallMethod(f.field, "ClearAllFilters"); err != nil {
		return fmt.Errorf("failed to clear filters: %w", err)
	}
	return nil
}

func (f *olePivotField) ItemNames() ([]string, error) {
	itemsProp, err := oleutil.CallMethod(f.field, "PivotItems")
	if err != nil {
		return nil, fmt.Errorf("failed to get PivotItems: %w", err)
	}
	items := itemsProp.ToIDispatch()
	defer items.Release()

	countProp, err := oleutil.GetProperty(items, "Count")
	if err != nil {
		return nil, fmt.Errorf("failed to get PivotItems.Count: %w", err)
	}
	count := int(countProp.Val)

	names := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		itemProp, err := oleutil.GetProperty(items, "Item", i)
		if err != nil {
			return nil, fmt.Errorf("failed to get pivot item %d: %w", i, err)
		}
		item := itemProp.ToIDispatch()
		nameProp, err := oleutil.GetProperty(item, "Name")
		item.Release()
		if err != nil {
			return nil, fmt.Errorf("failed to get pivot item %d name: %w", i, err)
		}
		names = append(names, nameProp.ToString())
	}
	return names, nil
}

func (f *olePivotField) SetVisibleItems(items []string) error {
	if _, err := oleutil.PutProperty(f.field, "VisibleItemsList", items); err != nil {
		return fmt.Errorf("failed to set VisibleItemsList: %w", err)
	}
	return nil
}

func (f *olePivotField) Release() {
	if f.field != nil {
		f.field.Release()
		f.field = nil
	}
}
