// Package runner captures process identity at start-up: hostname,
// working directory, and pid, the way cmd/strandctl's startup debug log
// line reports which host/process a scenario run actually landed on.
package runner

import "os"

var (
	// Hostname is this process's hostname, or "unknown" if os.Hostname
	// failed.
	Hostname string
	// Pwd is this process's working directory at start-up.
	Pwd string
	// PID is this process's OS process id.
	PID int
)

func init() {
	var err error
	Hostname, err = os.Hostname()
	if err != nil {
		Hostname = "unknown"
	}

	Pwd, _ = os.Getwd()
	PID = os.Getpid()
}
