package process

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/loykin/ccp/internal/detector"
)

// ErrNoRecord is returned by ReadRecord when the record file does not exist.
var ErrNoRecord = errors.New("no pid record")

// ReadRecord reads the PID stored in a record file written by WriteRecord.
// A record that exists but does not hold a positive integer yields an error
// wrapping detector.ErrInvalidPID.
func ReadRecord(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, ErrNoRecord
		}
		return 0, err
	}
	return detector.ParsePID(b)
}

// WriteRecord stores pid as a single decimal line. The file is replaced
// atomically so readers never observe a partial record.
func WriteRecord(path string, pid int) error {
	if pid <= 0 {
		return fmt.Errorf("%w %d", detector.ErrInvalidPID, pid)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(strconv.Itoa(pid) + "\n"); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// RemoveRecord deletes the record. A missing file is not an error.
func RemoveRecord(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
