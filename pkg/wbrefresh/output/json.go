// Package output serializes run reports and workbook descriptions.
package output

import (
	"encoding/json"

	"github.com/ukaji3/wbrefresh-go/pkg/wbrefresh/models"
)

// ToJSON serializes a run report.
func ToJSON(report *models.Report, pretty bool) ([]byte, error) {
	return marshal(report, pretty)
}

// WorkbookToJSON serializes a workbook description.
func WorkbookToJSON(wb *models.WorkbookData, pretty bool) ([]byte, error) {
	return marshal(wb, pretty)
}

func marshal(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}
