// Package console writes run progress as tagged, one-line-per-event output
// that a supervising process can stream.
package console

import (
	"bytes"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
	"github.com/ukaji3/wbrefresh-go/pkg/wbrefresh"
)

// Formatter renders entries as "[Tag] <marker> message".
type Formatter struct {
	styles map[wbrefresh.Status]lipgloss.Style
}

// NewFormatter creates a formatter whose colours follow the capabilities
// of w. Piped output is plain text.
func NewFormatter(w io.Writer) *Formatter {
	r := lipgloss.NewRenderer(w)
	return &Formatter{
		styles: map[wbrefresh.Status]lipgloss.Style{
			wbrefresh.StatusOK:   r.NewStyle().Foreground(lipgloss.Color("2")),
			wbrefresh.StatusWarn: r.NewStyle().Foreground(lipgloss.Color("3")),
			wbrefresh.StatusFail: r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
			wbrefresh.StatusDone: r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		},
	}
}

// Format implements logrus.Formatter.
func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	if tag, ok := entry.Data[wbrefresh.FieldTag].(string); ok && tag != "" {
		b.WriteString("[" + tag + "] ")
	}

	status, ok := entry.Data[wbrefresh.FieldStatus].(wbrefresh.Status)
	if !ok {
		status = levelStatus(entry.Level)
	}
	msg := strings.TrimRight(entry.Message, "\n")
	if status != "" {
		b.WriteString(string(status))
		b.WriteByte(' ')
		if style, ok := f.styles[status]; ok {
			msg = style.Render(msg)
		}
	}
	b.WriteString(msg)
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func levelStatus(level logrus.Level) wbrefresh.Status {
	switch level {
	case logrus.WarnLevel:
		return wbrefresh.StatusWarn
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return wbrefresh.StatusFail
	}
	return ""
}

// New returns a logger writing formatted lines to w. Each entry reaches w
// in a single Write, so line-buffered consumers see whole lines.
func New(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(NewFormatter(w))
	l.SetLevel(logrus.InfoLevel)
	return l
}
