//go:build linux

package sysstatus

import "github.com/prometheus/procfs"

// readLoadAverage reads the 1-minute load average via procfs, the closest
// Go-reachable analogue of the JVM platform managed bean's
// getSystemLoadAverage(). procfs was already a transitive dependency of
// client_golang; this is the one direct use of it in this module.
func readLoadAverage() (float64, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return 0, err
	}
	avg, err := fs.LoadAvg()
	if err != nil {
		return 0, err
	}
	return avg.Load1, nil
}
