package rename

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/afero"
)

// DuplicateLog records users excluded by conflict detection.
type DuplicateLog interface {
	Append(line string) error
}

// FileDuplicateLog appends lines to a text file, creating it on first use.
type FileDuplicateLog struct {
	fs   afero.Fs
	path string
}

// NewFileDuplicateLog returns a log writing to path on fs.
func NewFileDuplicateLog(fs afero.Fs, path string) *FileDuplicateLog {
	return &FileDuplicateLog{fs: fs, path: path}
}

// Path returns the log file location.
func (l *FileDuplicateLog) Path() string {
	return l.path
}

// Append writes line followed by the platform line ending.
func (l *FileDuplicateLog) Append(line string) error {
	f, err := l.fs.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open duplicates log: %w", err)
	}

	if _, err := f.WriteString(line + lineEnding()); err != nil {
		f.Close()
		return fmt.Errorf("failed to write duplicates log: %w", err)
	}
	return f.Close()
}

func lineEnding() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}
	return "\n"
}
