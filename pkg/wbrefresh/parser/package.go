// Package parser reads workbook structure straight from the OOXML package,
// without a running spreadsheet host.
package parser

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/ukaji3/wbrefresh-go/pkg/wbrefresh/models"
)

// ErrNotWorkbook indicates the package has no xl/workbook.xml part.
var ErrNotWorkbook = errors.New("package has no workbook part")

// Relationship type suffixes
const (
	relWorksheet  = "/worksheet"
	relPivotTable = "/pivotTable"
)

// sheetRef is a <sheet> entry of workbook.xml.
type sheetRef struct {
	name string
	rID  string
}

// relationship is a <Relationship> entry of a .rels part.
type relationship struct {
	typ    string
	target string
}

// ReadWorkbook reads sheets, pivot tables and connections from an xlsx file.
func ReadWorkbook(xlsxPath string) (*models.WorkbookData, error) {
	r, err := zip.OpenReader(xlsxPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return readWorkbook(&r.Reader, filepath.Base(xlsxPath))
}

func readWorkbook(r *zip.Reader, bookName string) (*models.WorkbookData, error) {
	workbookXML, err := readZipFile(r, "xl/workbook.xml")
	if err != nil {
		return nil, err
	}
	if workbookXML == nil {
		return nil, ErrNotWorkbook
	}

	// Read workbook.xml.rels to map rId to sheet file
	wbRelsXML, err := readZipFile(r, "xl/_rels/workbook.xml.rels")
	if err != nil {
		return nil, err
	}
	rels := parseRelationships(wbRelsXML)

	data := &models.WorkbookData{BookName: bookName}
	for _, ref := range parseWorkbookSheets(workbookXML) {
		sheet := models.SheetData{Name: ref.name}
		if rel, ok := rels[ref.rID]; ok && strings.HasSuffix(rel.typ, relWorksheet) {
			sheet.PivotTables = readSheetPivotTables(r, resolveRelativePath(rel.target, "xl"))
		}
		data.Sheets = append(data.Sheets, sheet)
	}

	connectionsXML, err := readZipFile(r, "xl/connections.xml")
	if err == nil && connectionsXML != nil {
		data.Connections = parseConnectionsXML(connectionsXML)
	}

	return data, nil
}

// readZipFile returns the content of a package part, or nil if it is absent.
func readZipFile(r *zip.Reader, name string) ([]byte, error) {
	for _, f := range r.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, nil
}

// resolveRelativePath resolves a relationship target against the directory
// of the part that declared it.
func resolveRelativePath(target, baseDir string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(baseDir, target)
}

// relsPathFor returns the .rels part belonging to partPath.
func relsPathFor(partPath string) string {
	return path.Join(path.Dir(partPath), "_rels", path.Base(partPath)+".rels")
}

// parseWorkbookSheets returns the <sheet> entries in workbook order.
func parseWorkbookSheets(data []byte) []sheetRef {
	var result []sheetRef
	decoder := xml.NewDecoder(strings.NewReader(string(data)))

	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		if se, ok := token.(xml.StartElement); ok && se.Name.Local == "sheet" {
			var ref sheetRef
			for _, attr := range se.Attr {
				switch attr.Name.Local {
				case "name":
					ref.name = attr.Value
				case "id":
					ref.rID = attr.Value
				}
			}
			if ref.name != "" {
				result = append(result, ref)
			}
		}
	}

	return result
}

// parseRelationships maps relationship ids to their type and target.
func parseRelationships(data []byte) map[string]relationship {
	result := make(map[string]relationship)
	if len(data) == 0 {
		return result
	}
	decoder := xml.NewDecoder(strings.NewReader(string(data)))

	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		if se, ok := token.(xml.StartElement); ok && se.Name.Local == "Relationship" {
			var id string
			var rel relationship
			for _, attr := range se.Attr {
				switch attr.Name.Local {
				case "Id":
					id = attr.Value
				case "Type":
					rel.typ = attr.Value
				case "Target":
					rel.target = attr.Value
				}
			}
			if id != "" {
				result[id] = rel
			}
		}
	}

	return result
}
