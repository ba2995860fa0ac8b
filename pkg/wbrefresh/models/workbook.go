// Package models defines data structures for workbook runs and inspection.
package models

// WorkbookData describes a workbook package as read from disk.
type WorkbookData struct {
	// BookName is the workbook file name (no path).
	BookName string `json:"book_name"`
	// Sheets lists the sheets in workbook order.
	Sheets []SheetData `json:"sheets"`
	// Connections lists the external connections in declaration order.
	Connections []Connection `json:"connections,omitempty"`
}

// Sheet returns the sheet with the given name.
func (w *WorkbookData) Sheet(name string) (SheetData, bool) {
	for _, s := range w.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return SheetData{}, false
}

// Connection represents an external data connection.
type Connection struct {
	// ID is the connection id attribute.
	ID int `json:"id"`
	// Name is the connection display name.
	Name string `json:"name"`
	// Type is the OOXML connection type (1 ODBC, 5 OLE DB, ...).
	Type int `json:"type,omitempty"`
	// Description is the optional connection description.
	Description string `json:"description,omitempty"`
	// RefreshOnLoad reports whether the host refreshes it on open.
	RefreshOnLoad bool `json:"refresh_on_load,omitempty"`
}
