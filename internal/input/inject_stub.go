//go:build !windows

package input

// New reports the missing injection capability at startup on platforms
// without a backend implementation.
func New() (Backend, error) {
	return nil, ErrUnsupported
}
