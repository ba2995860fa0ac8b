package output

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/wbrefresh-go/pkg/wbrefresh/models"
)

func TestToJSONReport(t *testing.T) {
	report := &models.Report{
		RunID:    "run-1",
		Workflow: "circana",
		Path:     `C:\data\Circana.xlsx`,
		HostPID:  4242,
		Success:  true,
		Elapsed:  3 * time.Second,
		Steps: []models.StepResult{
			{Name: "open", Kind: "open", Status: models.StepOK},
			{Name: "connection 1", Kind: "refresh-connections", Status: models.StepFailed, Error: "timeout"},
		},
	}

	data, err := ToJSON(report, false)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(data), "\n"))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "circana", decoded["workflow"])
	assert.Equal(t, float64(4242), decoded["host_pid"])
	steps := decoded["steps"].([]any)
	require.Len(t, steps, 2)
	assert.Equal(t, "timeout", steps[1].(map[string]any)["error"])
	assert.NotContains(t, steps[0].(map[string]any), "error")
}

func TestWorkbookToJSONPretty(t *testing.T) {
	wb := &models.WorkbookData{
		BookName: "NPD.xlsx",
		Sheets: []models.SheetData{
			{Name: "Actuals", PivotTables: []models.PivotTable{{Name: "PivotTable1", CacheID: 3}}},
		},
	}

	data, err := WorkbookToJSON(wb, true)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"sheets\"")
	assert.Contains(t, string(data), `"pivot_tables"`)
	assert.NotContains(t, string(data), `"connections"`)
}
