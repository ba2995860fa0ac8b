// Package wbrefresh runs fixed workbook refresh workflows against a
// spreadsheet automation host or, for cell-only updates, directly against
// the workbook files.
package wbrefresh

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukaji3/wbrefresh-go/pkg/wbrefresh/automation"
)

const (
	// DefaultSettleDelay is the fixed pause after a connection refresh when
	// the connection exposes no refreshing signal.
	DefaultSettleDelay = 2 * time.Second
	// DefaultRefreshTimeout bounds how long a single connection is polled.
	DefaultRefreshTimeout = 5 * time.Minute
	// DefaultPollInterval is the spacing between refreshing-signal polls.
	DefaultPollInterval = 500 * time.Millisecond
)

// Options configures a run.
type Options struct {
	// Attach connects to a running host instead of starting a new one.
	Attach bool
	// Launch acquires the host. If nil, automation.Start or
	// automation.Attach is used depending on Attach.
	Launch automation.Launcher
	// Logger receives progress events. If nil, events are discarded.
	Logger logrus.FieldLogger
	// OnHostStarted is called with the host PID right after a host is
	// started. It is not called for an attached host.
	OnHostStarted func(pid int)
	// SettleDelay, RefreshTimeout and PollInterval tune the wait after each
	// connection refresh. Zero values fall back to the defaults.
	SettleDelay    time.Duration
	RefreshTimeout time.Duration
	PollInterval   time.Duration
	// SkipPreflight disables the offline package check before a run.
	SkipPreflight bool
	// Now returns the current time. If nil, time.Now is used.
	Now func() time.Time
}

// DefaultOptions returns default run options.
func DefaultOptions() Options {
	return Options{
		SettleDelay:    DefaultSettleDelay,
		RefreshTimeout: DefaultRefreshTimeout,
		PollInterval:   DefaultPollInterval,
	}
}

func (o Options) withDefaults() Options {
	if o.Launch == nil {
		if o.Attach {
			o.Launch = automation.Attach
		} else {
			o.Launch = automation.Start
		}
	}
	if o.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.Logger = l
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = DefaultSettleDelay
	}
	if o.RefreshTimeout <= 0 {
		o.RefreshTimeout = DefaultRefreshTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
