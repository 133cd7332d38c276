package models

import (
	"fmt"

	"github.com/rfdados/cnpj-pipeline/internal/schema"
)

// FileInfo describes one extracted registry file found on local storage.
// The ledger identifies files by content checksum, computed lazily when the
// file is processed, not during the scan.
type FileInfo struct {
	Path     string
	Name     string
	Type     schema.FileType
	ByteSize int64
}

// FileStatus is the per-file outcome reported at the end of a run.
type FileStatus string

const (
	StatusCompleted FileStatus = "completed"
	StatusFailed    FileStatus = "failed"
	StatusSkipped   FileStatus = "skipped"
)

// FileError ties a pipeline failure to the file and stage it happened in, so
// a run summary line is actionable without digging through worker logs.
type FileError struct {
	FileName string
	Stage    string
	Err      error
}

func (e *FileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s failed: %v", e.FileName, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %s failed", e.FileName, e.Stage)
}

func (e *FileError) Unwrap() error { return e.Err }

// FileReport is the user-visible result for one file. Counts cover the
// recoverable faults the pipeline absorbed while loading it.
type FileReport struct {
	Name          string
	Type          schema.FileType
	Status        FileStatus
	Rows          int64
	Dropped       int64
	CoercedNull   int64
	Substitutions int64
	Err           error
}

func (r FileReport) String() string {
	switch r.Status {
	case StatusFailed:
		return fmt.Sprintf("%v", r.Err)
	case StatusSkipped:
		return fmt.Sprintf("%s: skipped (already loaded)", r.Name)
	default:
		return fmt.Sprintf("%s: %d rows (dropped=%d, coerced_null=%d, encoding_subs=%d)",
			r.Name, r.Rows, r.Dropped, r.CoercedNull, r.Substitutions)
	}
}

// RunSummary aggregates the reports of one run. A run with any failed file
// must surface as unsuccessful to the caller.
type RunSummary struct {
	Reports   []FileReport
	Completed int
	Failed    int
	Skipped   int
	TotalRows int64
}

func (s *RunSummary) Add(r FileReport) {
	s.Reports = append(s.Reports, r)
	switch r.Status {
	case StatusCompleted:
		s.Completed++
		s.TotalRows += r.Rows
	case StatusFailed:
		s.Failed++
	case StatusSkipped:
		s.Skipped++
	}
}

// OK reports whether every presented file either loaded or was already
// loaded.
func (s *RunSummary) OK() bool {
	return s.Failed == 0
}
