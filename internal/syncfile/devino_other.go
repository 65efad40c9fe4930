//go:build !linux && !darwin

package syncfile

import "errors"

var errDevinoUnsupported = errors.New("device identity not supported on this platform")

func deviceOf(_ string) (uint64, error) {
	return 0, errDevinoUnsupported
}
