package supervisor

import "errors"

var (
	// ErrInvalidArguments reports conflicting start options.
	ErrInvalidArguments = errors.New("invalid arguments")
	// ErrEnvironmentSetup reports a failed environment preparation step.
	ErrEnvironmentSetup = errors.New("environment setup failed")
	// ErrLaunchFailed reports that the server program could not be spawned.
	ErrLaunchFailed = errors.New("launch failed")
	// ErrNotRunning reports that there is no process record to act on.
	ErrNotRunning = errors.New("server is not running")
	// ErrNoLogFile reports that no log has been written yet.
	ErrNoLogFile = errors.New("no log file")
	// ErrCorruptState reports an unparseable process record. The record is
	// removed before this error is returned.
	ErrCorruptState = errors.New("corrupt process record")
	// ErrClientNotFound reports that the client executable is not on PATH.
	ErrClientNotFound = errors.New("client executable not found")
	// ErrBusy reports that another invocation holds the context lock.
	ErrBusy = errors.New("another ccp operation is in progress")
)
