//go:build !linux

package lwrf

// NewTickSource returns the best tick source for this platform.
func NewTickSource() (TickSource, error) {
	return NewGoTicker(), nil
}
