// Package power keeps the machine awake for the duration of a run.
package power

// KeepAwake suspends system and display sleep until the returned restore
// function is called. On platforms without a sleep API it does nothing.
func KeepAwake() (restore func(), err error) {
	return keepAwake()
}
