package wbrefresh

import "github.com/sirupsen/logrus"

// Log entry fields understood by the console formatter.
const (
	FieldTag    = "tag"
	FieldStatus = "status"
)

// Status is the marker printed in front of a progress line.
type Status string

const (
	StatusProgress Status = "🔄"
	StatusOK       Status = "✅"
	StatusWarn     Status = "⚠️"
	StatusFail     Status = "❌"
	StatusDate     Status = "📅"
	StatusTime     Status = "⏱️"
	StatusDone     Status = "🎉"
)

// Emit logs one progress line at the level matching status.
func Emit(log logrus.FieldLogger, status Status, format string, args ...any) {
	entry := log.WithField(FieldStatus, status)
	switch status {
	case StatusWarn:
		entry.Warnf(format, args...)
	case StatusFail:
		entry.Errorf(format, args...)
	default:
		entry.Infof(format, args...)
	}
}
