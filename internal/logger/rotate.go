package logger

import (
	"errors"
	"os"
)

// RotateIfNeeded rotates the file at c.Path when it is larger than
// c.MaxSizeMB. The current file is renamed to a timestamped backup and an
// empty file takes its place; old backups are pruned per c.MaxBackups and
// c.MaxAgeDays. It reports whether a rotation happened.
func RotateIfNeeded(c FileConfig) (bool, error) {
	if c.Path == "" {
		return false, nil
	}
	st, err := os.Stat(c.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	limit := int64(valOr(c.MaxSizeMB, DefaultMaxSizeMB)) * 1024 * 1024
	if st.Size() <= limit {
		return false, nil
	}
	l := c.lumberjack()
	if err := l.Rotate(); err != nil {
		return false, err
	}
	return true, l.Close()
}
