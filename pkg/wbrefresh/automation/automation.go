// Package automation exposes the spreadsheet host's object model as a small
// set of interfaces. The live implementation talks to Excel through OLE on
// Windows; tests substitute their own.
package automation

import "errors"

// ErrUnsupportedPlatform is returned when no automation host can exist on
// the current platform.
var ErrUnsupportedPlatform = errors.New("automation host is only available on Windows")

// ErrNoRefreshSignal indicates a connection does not expose whether a
// refresh is still in flight.
var ErrNoRefreshSignal = errors.New("connection exposes no refreshing signal")

// Host is a running spreadsheet application owned by one run.
type Host interface {
	// PID returns the host process identifier, or 0 when it is unknown.
	PID() int
	// Owned reports whether this handle started the host. An attached
	// host belongs to the user and is never hidden, quit or killed.
	Owned() bool
	// SuppressPrompts disables alerts, link-update prompts and event
	// callbacks. An owned host is also hidden. Settings changed on an
	// attached host are restored by Close.
	SuppressPrompts() error
	// OpenWorkbook opens the workbook read-write without updating links.
	OpenWorkbook(path string) (Workbook, error)
	// CalculateUntilAsyncQueriesDone blocks until pending queries finish.
	CalculateUntilAsyncQueriesDone() error
	// Calculate switches calculation to automatic and recalculates all
	// open workbooks.
	Calculate() error
	// Close quits the host if this handle started it, otherwise restores
	// the prompt settings, then releases the application object and
	// uninitializes the automation layer.
	Close() error
}

// Workbook is an open workbook inside a Host.
type Workbook interface {
	// Connections returns the external connections in declaration order.
	Connections() ([]Connection, error)
	// PivotTable looks up a pivot table by sheet and name.
	PivotTable(sheet, name string) (PivotTable, error)
	// SetCellValue writes a value; an empty sheet means the active sheet.
	SetCellValue(sheet, cell string, value any) error
	// GetCellValue reads a value; an empty sheet means the active sheet.
	GetCellValue(sheet, cell string) (any, error)
	// Calculate recalculates this workbook only.
	Calculate() error
	Save() error
	Close(saveChanges bool) error
	Release()
}

// Connection is a named external data link.
type Connection interface {
	Name() string
	Refresh() error
	// Refreshing reports whether a background refresh is still running.
	// It returns ErrNoRefreshSignal when the connection type has none.
	Refreshing() (bool, error)
	Release()
}

// PivotTable is a named pivot report.
type PivotTable interface {
	RefreshCache() error
	RefreshTable() error
	Field(name string) (PivotField, error)
	Release()
}

// PivotField is one grouping dimension of a pivot table.
type PivotField interface {
	ClearAllFilters() error
	ItemNames() ([]string, error)
	// SetVisibleItems replaces the visible items of an OLAP field.
	SetVisibleItems(items []string) error
	Release()
}

// Launcher acquires a Host.
type Launcher func() (Host, error)

// Start launches a new host instance dedicated to the caller.
func Start() (Host, error) {
	return startPlatform()
}

// Attach connects to an already running host, launching one if none is
// running. An attached host is not quit on Close.
func Attach() (Host, error) {
	return attachPlatform()
}
