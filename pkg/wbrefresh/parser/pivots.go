package parser

import (
	"archive/zip"
	"encoding/xml"
	"path"
	"sort"
	"strings"

	"github.com/ukaji3/wbrefresh-go/pkg/wbrefresh/models"
)

// xlsxPivotTableDefinition holds the parts of pivotTableDefinition we read.
type xlsxPivotTableDefinition struct {
	XMLName  xml.Name `xml:"pivotTableDefinition"`
	Name     string   `xml:"name,attr"`
	CacheID  int      `xml:"cacheId,attr"`
	Location struct {
		Ref string `xml:"ref,attr"`
	} `xml:"location"`
}

// xlsxConnections holds the parts of connections.xml we read.
type xlsxConnections struct {
	XMLName    xml.Name `xml:"connections"`
	Connection []struct {
		ID            int    `xml:"id,attr"`
		Name          string `xml:"name,attr"`
		Type          int    `xml:"type,attr"`
		Description   string `xml:"description,attr"`
		RefreshOnLoad bool   `xml:"refreshOnLoad,attr"`
	} `xml:"connection"`
}

// readSheetPivotTables follows the sheet's relationships to its pivot
// table parts. A sheet without relationships has no pivot tables.
func readSheetPivotTables(r *zip.Reader, sheetPath string) []models.PivotTable {
	relsXML, err := readZipFile(r, relsPathFor(sheetPath))
	if err != nil || relsXML == nil {
		return nil
	}

	var tables []models.PivotTable
	for _, rel := range parseRelationships(relsXML) {
		if !strings.HasSuffix(rel.typ, relPivotTable) {
			continue
		}
		ptXML, err := readZipFile(r, resolveRelativePath(rel.target, path.Dir(sheetPath)))
		if err != nil || ptXML == nil {
			continue
		}
		if pt, ok := parsePivotTableXML(ptXML); ok {
			tables = append(tables, pt)
		}
	}

	// Relationship order is a map walk; keep output stable.
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
	return tables
}

// parsePivotTableXML parses a pivotTableDefinition part.
func parsePivotTableXML(data []byte) (models.PivotTable, bool) {
	var def xlsxPivotTableDefinition
	if err := xml.Unmarshal(data, &def); err != nil || def.Name == "" {
		return models.PivotTable{}, false
	}
	return models.PivotTable{
		Name:     def.Name,
		CacheID:  def.CacheID,
		Location: def.Location.Ref,
	}, true
}

// parseConnectionsXML parses xl/connections.xml in declaration order.
func parseConnectionsXML(data []byte) []models.Connection {
	var conns xlsxConnections
	if err := xml.Unmarshal(data, &conns); err != nil {
		return nil
	}
	result := make([]models.Connection, 0, len(conns.Connection))
	for _, c := range conns.Connection {
		result = append(result, models.Connection{
			ID:            c.ID,
			Name:          c.Name,
			Type:          c.Type,
			Description:   c.Description,
			RefreshOnLoad: c.RefreshOnLoad,
		})
	}
	return result
}
