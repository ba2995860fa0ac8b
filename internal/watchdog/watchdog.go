// Package watchdog force-terminates the automation host when a run is
// interrupted, so a hung host never outlives its supervisor.
package watchdog

import (
	"context"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Watchdog kills the tracked host process once its context is cancelled,
// unless it was stopped first.
type Watchdog struct {
	mu      sync.Mutex
	pid     int
	stopped bool
	killed  chan struct{}
	log     logrus.FieldLogger
	kill    func(pid int) error
}

// Guard starts a watchdog bound to ctx.
func Guard(ctx context.Context, log logrus.FieldLogger) *Watchdog {
	return guard(ctx, log, killProcess)
}

func guard(ctx context.Context, log logrus.FieldLogger, kill func(int) error) *Watchdog {
	w := &Watchdog{log: log, kill: kill, killed: make(chan struct{})}
	go func() {
		<-ctx.Done()
		w.fire()
	}()
	return w
}

// Track records the host PID to kill. Zero clears it.
func (w *Watchdog) Track(pid int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pid = pid
}

// Stop disarms the watchdog. A later cancellation kills nothing.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
}

// Killed is closed after the watchdog terminated the host.
func (w *Watchdog) Killed() <-chan struct{} {
	return w.killed
}

func (w *Watchdog) fire() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped || w.pid == 0 {
		return
	}
	if err := w.kill(w.pid); err != nil {
		w.log.WithError(err).Errorf("Failed to terminate Excel PID:%d", w.pid)
		return
	}
	w.log.Warnf("Excel PID:%d terminated", w.pid)
	w.pid = 0
	close(w.killed)
}

func killProcess(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}
