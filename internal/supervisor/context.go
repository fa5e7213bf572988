package supervisor

import (
	"path/filepath"
)

// Well-known file names inside a supervisor context directory.
const (
	PIDFileName  = ".ccp.pid"
	LogFileName  = ".ccp.log"
	LockFileName = ".ccp.lock"
)

// Context carries the paths one supervised instance owns. Every operation
// works against the paths in its Context, so several contexts can coexist in
// one process.
type Context struct {
	Dir      string
	PIDFile  string
	LogFile  string
	LockFile string
}

// NewContext derives the well-known paths from dir. Relative dirs are made
// absolute so a detached child and later invocations agree on the paths.
func NewContext(dir string) (Context, error) {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Context{}, err
	}
	return Context{
		Dir:      abs,
		PIDFile:  filepath.Join(abs, PIDFileName),
		LogFile:  filepath.Join(abs, LogFileName),
		LockFile: filepath.Join(abs, LockFileName),
	}, nil
}
