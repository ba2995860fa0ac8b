//go:build !windows

package automation

func startPlatform() (Host, error) {
	return nil, ErrUnsupportedPlatform
}

func attachPlatform() (Host, error) {
	return nil, ErrUnsupportedPlatform
}
