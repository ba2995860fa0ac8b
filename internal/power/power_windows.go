//go:build windows

package power

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/windows"
)

const (
	esContinuous      = 0x80000000
	esSystemRequired  = 0x00000001
	esDisplayRequired = 0x00000002
)

var procSetThreadExecutionState = windows.NewLazySystemDLL("kernel32.dll").NewProc("SetThreadExecutionState")

func keepAwake() (func(), error) {
	// The execution state belongs to the calling thread.
	runtime.LockOSThread()
	if r, _, err := procSetThreadExecutionState.Call(uintptr(esContinuous | esSystemRequired | esDisplayRequired)); r == 0 {
		runtime.UnlockOSThread()
		return func() {}, fmt.Errorf("SetThreadExecutionState: %w", err)
	}
	return func() {
		procSetThreadExecutionState.Call(uintptr(esContinuous))
		runtime.UnlockOSThread()
	}, nil
}
