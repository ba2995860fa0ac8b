package console

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/wbrefresh-go/pkg/wbrefresh"
)

func TestLoggerWritesTaggedLines(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf)

	tagged := log.WithField(wbrefresh.FieldTag, "Circana")
	wbrefresh.Emit(tagged, wbrefresh.StatusProgress, "Refreshing connection %d: %s", 1, "Query - Sales")
	wbrefresh.Emit(tagged, wbrefresh.StatusOK, "Connection 1 refreshed")
	wbrefresh.Emit(log, wbrefresh.StatusTime, "Total time: %dm %ds", 1, 5)

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "[Circana] 🔄 Refreshing connection 1: Query - Sales", lines[0])
	assert.Equal(t, "[Circana] ✅ Connection 1 refreshed", lines[1])
	assert.Equal(t, "⏱️ Total time: 1m 5s", lines[2])
}

func TestLoggerFallsBackToLevelMarkers(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf)

	log.WithField(wbrefresh.FieldTag, "NPD").WithError(errors.New("boom")).Error("Pivot refreshing failed")
	log.Warn("careful")
	log.Info("plain")

	assert.Equal(t,
		"[NPD] ❌ Pivot refreshing failed\n⚠️ careful\nplain\n",
		buf.String())
}

func TestLoggerDropsDebug(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf)
	log.Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestFormatterTrimsTrailingNewlines(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf)
	wbrefresh.Emit(log.WithField(wbrefresh.FieldTag, "NPD"), wbrefresh.StatusOK, "Workbook saved and closed\n\n")
	assert.Equal(t, "[NPD] ✅ Workbook saved and closed\n", buf.String())
}
