package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rewired-gh/trafficsurvey/internal/models"
)

// ResultsFile appends rendered reports to a shared text file.
// Existing content is never rewritten.
type ResultsFile struct {
	path            string
	filePermissions os.FileMode
	mu              sync.Mutex
}

// NewResultsFile creates a sink that appends to path.
func NewResultsFile(path string, filePermissions os.FileMode) *ResultsFile {
	if filePermissions == 0 {
		filePermissions = 0o644
	}
	return &ResultsFile{path: path, filePermissions: filePermissions}
}

// Path returns the results file location
func (f *ResultsFile) Path() string {
	return f.path
}

// Append writes the report header and its lines to the end of the file.
// The whole report goes out in a single write so that concurrent runs
// appending to the same file do not interleave their lines.
func (f *ResultsFile) Append(report *models.Report) error {
	var b strings.Builder
	b.WriteString(report.Header())
	b.WriteByte('\n')
	for _, line := range report.Lines() {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create results directory: %w", err)
		}
	}

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, f.filePermissions)
	if err != nil {
		return fmt.Errorf("failed to open results file: %w", err)
	}

	if _, err := file.WriteString(b.String()); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write results: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close results file: %w", err)
	}
	return nil
}
