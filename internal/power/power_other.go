//go:build !windows

package power

func keepAwake() (func(), error) {
	return func() {}, nil
}
