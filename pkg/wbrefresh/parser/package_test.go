package parser

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestResolveRelativePath(t *testing.T) {
	tests := []struct {
		target   string
		baseDir  string
		expected string
	}{
		{"worksheets/sheet1.xml", "xl", "xl/worksheets/sheet1.xml"},
		{"/xl/worksheets/sheet2.xml", "xl", "xl/worksheets/sheet2.xml"},
		{"../pivotTables/pivotTable1.xml", "xl/worksheets", "xl/pivotTables/pivotTable1.xml"},
		{"pivotTable3.xml", "xl/pivotTables", "xl/pivotTables/pivotTable3.xml"},
	}

	for _, tt := range tests {
		result := resolveRelativePath(tt.target, tt.baseDir)
		if result != tt.expected {
			t.Errorf("resolveRelativePath(%q, %q) = %q, expected %q",
				tt.target, tt.baseDir, result, tt.expected)
		}
	}
}

func TestRelsPathFor(t *testing.T) {
	got := relsPathFor("xl/worksheets/sheet2.xml")
	if got != "xl/worksheets/_rels/sheet2.xml.rels" {
		t.Errorf("relsPathFor = %q", got)
	}
}

func TestParseWorkbookSheetsKeepsOrder(t *testing.T) {
	data := []byte(`<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"
 xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<sheets>
<sheet name="Nespresso" sheetId="3" r:id="rId3"/>
<sheet name="Dates" sheetId="1" r:id="rId1"/>
</sheets></workbook>`)

	refs := parseWorkbookSheets(data)
	if len(refs) != 2 {
		t.Fatalf("Expected 2 sheets, got %d", len(refs))
	}
	if refs[0].name != "Nespresso" || refs[0].rID != "rId3" {
		t.Errorf("Unexpected first sheet: %+v", refs[0])
	}
	if refs[1].name != "Dates" || refs[1].rID != "rId1" {
		t.Errorf("Unexpected second sheet: %+v", refs[1])
	}
}

func TestParseConnectionsXML(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<connections xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
<connection id="1" name="Query - Sales" description="Connection to the 'Sales' query" type="5" refreshedVersion="6" refreshOnLoad="1"/>
<connection id="2" name="ThisWorkbookDataModel" type="100" refreshedVersion="6"/>
</connections>`)

	conns := parseConnectionsXML(data)
	if len(conns) != 2 {
		t.Fatalf("Expected 2 connections, got %d", len(conns))
	}
	if conns[0].Name != "Query - Sales" || conns[0].Type != 5 || !conns[0].RefreshOnLoad {
		t.Errorf("Unexpected first connection: %+v", conns[0])
	}
	if conns[1].ID != 2 || conns[1].RefreshOnLoad {
		t.Errorf("Unexpected second connection: %+v", conns[1])
	}
}

func TestParsePivotTableXML(t *testing.T) {
	data := []byte(`<pivotTableDefinition xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"
 name="PivotTable2" cacheId="7" dataCaption="Values"><location ref="A3:C20" firstHeaderRow="1" firstDataRow="1" firstDataCol="1"/></pivotTableDefinition>`)

	pt, ok := parsePivotTableXML(data)
	if !ok {
		t.Fatal("Expected pivot table to parse")
	}
	if pt.Name != "PivotTable2" || pt.CacheID != 7 || pt.Location != "A3:C20" {
		t.Errorf("Unexpected pivot table: %+v", pt)
	}

	if _, ok := parsePivotTableXML([]byte(`<chartSpace/>`)); ok {
		t.Error("Expected non-pivot part to be rejected")
	}
}

func TestReadWorkbookFindsPivotTables(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", "Data")
	if _, err := f.NewSheet("Dates"); err != nil {
		t.Fatalf("NewSheet failed: %v", err)
	}
	f.SetCellValue("Data", "A1", "Date")
	f.SetCellValue("Data", "B1", "Sales")
	for i, d := range []string{"2024-01-07", "2024-01-14", "2024-01-21"} {
		f.SetCellValue("Data", fmt.Sprintf("A%d", i+2), d)
		f.SetCellValue("Data", fmt.Sprintf("B%d", i+2), (i+1)*10)
	}
	if err := f.AddPivotTable(&excelize.PivotTableOptions{
		DataRange:       "Data!A1:B4",
		PivotTableRange: "Dates!A1:C10",
		Name:            "PivotTable2",
		Rows:            []excelize.PivotTableField{{Data: "Date"}},
		Data:            []excelize.PivotTableField{{Data: "Sales", Subtotal: "Sum"}},
	}); err != nil {
		t.Fatalf("AddPivotTable failed: %v", err)
	}

	tmpFile := filepath.Join(t.TempDir(), "pivot.xlsx")
	if err := f.SaveAs(tmpFile); err != nil {
		t.Fatalf("Failed to save test file: %v", err)
	}

	wb, err := ReadWorkbook(tmpFile)
	if err != nil {
		t.Fatalf("ReadWorkbook failed: %v", err)
	}

	if wb.BookName != "pivot.xlsx" {
		t.Errorf("Expected book name pivot.xlsx, got %s", wb.BookName)
	}
	if len(wb.Sheets) != 2 {
		t.Fatalf("Expected 2 sheets, got %d", len(wb.Sheets))
	}
	if wb.Sheets[0].Name != "Data" || wb.Sheets[1].Name != "Dates" {
		t.Errorf("Unexpected sheet order: %s, %s", wb.Sheets[0].Name, wb.Sheets[1].Name)
	}
	dates, ok := wb.Sheet("Dates")
	if !ok {
		t.Fatal("Expected Dates sheet")
	}
	if !dates.HasPivotTable("PivotTable2") {
		t.Errorf("Expected PivotTable2 on Dates, got %+v", dates.PivotTables)
	}
	data, _ := wb.Sheet("Data")
	if len(data.PivotTables) != 0 {
		t.Errorf("Expected no pivot tables on Data, got %+v", data.PivotTables)
	}
	if len(wb.Connections) != 0 {
		t.Errorf("Expected no connections, got %+v", wb.Connections)
	}
}

func TestReadWorkbookRejectsNonWorkbook(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "plain.xlsx")
	if err := os.WriteFile(plain, []byte("not a zip"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadWorkbook(plain); err == nil {
		t.Error("Expected error for non-zip file")
	}

	empty := filepath.Join(dir, "empty.xlsx")
	out, err := os.Create(empty)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(out)
	w, _ := zw.Create("docProps/app.xml")
	w.Write([]byte("<Properties/>"))
	zw.Close()
	out.Close()

	if _, err := ReadWorkbook(empty); err != ErrNotWorkbook {
		t.Errorf("Expected ErrNotWorkbook, got %v", err)
	}
}
