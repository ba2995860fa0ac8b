package models

// SheetData represents one sheet and the pivot tables placed on it.
type SheetData struct {
	// Name is the sheet name.
	Name string `json:"name"`
	// PivotTables contains pivot tables found on the sheet.
	PivotTables []PivotTable `json:"pivot_tables,omitempty"`
}

// HasPivotTable reports whether the sheet holds a pivot table named name.
func (s SheetData) HasPivotTable(name string) bool {
	for _, pt := range s.PivotTables {
		if pt.Name == name {
			return true
		}
	}
	return false
}

// PivotTable represents pivot table metadata.
type PivotTable struct {
	// Name is the pivot table name.
	Name string `json:"name"`
	// CacheID is the id of the pivot cache the table is bound to.
	CacheID int `json:"cache_id"`
	// Location is the cell range occupied by the table (e.g. A3:D20).
	Location string `json:"location,omitempty"`
}
