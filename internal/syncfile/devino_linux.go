//go:build linux

package syncfile

import "golang.org/x/sys/unix"

// deviceOf returns the device identity of the filesystem holding path.
func deviceOf(path string) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, err
	}
	return st.Dev, nil
}
