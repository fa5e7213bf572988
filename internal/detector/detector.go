package detector

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidPID is returned when a PID file does not hold a positive integer.
var ErrInvalidPID = errors.New("invalid pid")

// PIDFileDetector detects a process via a single-line PID file.
type PIDFileDetector struct {
	PIDFile string
}

// Probe reads the PID file and probes the process it names. A missing file
// yields pid 0 and no error; a file that does not hold a positive integer
// yields an error wrapping ErrInvalidPID.
func (d PIDFileDetector) Probe() (pid int, alive bool, err error) {
	data, err := os.ReadFile(d.PIDFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, false, nil
		}
		return 0, false, err
	}
	pid, err = ParsePID(data)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", d.PIDFile, err)
	}
	return pid, PIDAlive(pid), nil
}

func (d PIDFileDetector) Describe() string { return "pidfile:" + d.PIDFile }

// ParsePID reads the PID from the first line of data.
func ParsePID(data []byte) (int, error) {
	line, _, _ := strings.Cut(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	line = strings.TrimSpace(line)
	pid, err := strconv.Atoi(line)
	if err != nil {
		return 0, fmt.Errorf("%w %q", ErrInvalidPID, line)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("%w %d", ErrInvalidPID, pid)
	}
	return pid, nil
}

// PIDAlive sends a zero-effect probe to pid. Non-positive PIDs are never alive.
func PIDAlive(pid int) bool { return pidAlive(pid) }

// StartTime returns when pid started. ok is false if the platform cannot tell.
func StartTime(pid int) (time.Time, bool) {
	sec := getProcStartUnix(pid)
	if sec <= 0 {
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}
