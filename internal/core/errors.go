package core

// errors.go defines the ingestion error taxonomy and the mapping from
// technical errors to user-facing messages.
//
// # Error Codes Reference
//
// Users can quote these codes to support staff for faster diagnosis:
//
//	FILE001 - Wrong file type: only .csv files are accepted
//	FILE002 - File too large: upload exceeds the 5 MiB limit
//	CSV001  - Unreadable CSV: the file could not be parsed at all
//	CSV002  - Schema mismatch: missing or unexpected header columns
//	CSV003  - Row errors: one or more data rows failed validation
//	CSV004  - Empty dataset: valid header but no data rows
//	DS001   - Not found: dataset does not exist or is not yours
//	ST001   - Storage error: saving or trimming history failed
//
// Validation errors (FILE*/CSV*) are deterministic functions of the
// uploaded bytes and are never retried; they carry enough detail (line
// numbers, column names) for the user to fix the file in one pass.

import (
	"errors"
	"fmt"
	"strings"
)

// InvalidUploadError reports a precondition failure (extension or
// size) detected before any parsing is attempted.
type InvalidUploadError struct {
	Filename string
	Reason   string
}

func (e *InvalidUploadError) Error() string {
	return fmt.Sprintf("invalid upload %q: %s", e.Filename, e.Reason)
}

// SchemaError reports a header that does not match the five expected
// columns. Missing and Unexpected name the offending columns.
type SchemaError struct {
	Missing    []string
	Unexpected []string
}

func (e *SchemaError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required columns: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, "unexpected columns: "+strings.Join(e.Unexpected, ", "))
	}
	if len(parts) == 0 {
		return "invalid CSV header"
	}
	return strings.Join(parts, "; ")
}

// RowError describes one data row that failed validation. Line is the
// 1-based file line number (the header is line 1).
type RowError struct {
	Line    int    `json:"line"`
	Field   string `json:"field,omitempty"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// RowErrors aggregates every failing row of an upload. The parser
// validates all rows before failing so the caller can report every
// problem at once instead of one per attempt.
type RowErrors []RowError

func (e RowErrors) Error() string {
	switch len(e) {
	case 0:
		return "row validation failed"
	case 1:
		return e[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more rows)", e[0].Error(), len(e)-1)
	}
}

// ErrEmptyDataset is returned by Summarize when there are no records:
// a header-only upload has nothing to summarize or report on.
var ErrEmptyDataset = errors.New("dataset contains no data rows")

// ErrUnreadableCSV wraps encoding/csv failures that prevent any row
// from being read.
var ErrUnreadableCSV = errors.New("unreadable CSV")

// NotFoundError reports a dataset that does not exist or is owned by
// another user. The two cases are deliberately indistinguishable.
type NotFoundError struct {
	DatasetID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("dataset %d not found", e.DatasetID)
}

// RetentionError reports a storage failure during the insert-and-trim
// sequence, after the bounded retry has been exhausted.
type RetentionError struct {
	Op  string
	Err error
}

func (e *RetentionError) Error() string {
	return fmt.Sprintf("retention %s: %v", e.Op, e.Err)
}

func (e *RetentionError) Unwrap() error { return e.Err }

// UserMessage is a user-friendly rendition of a technical error, with
// a support code and a suggested next action.
type UserMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
}

// MapError converts an error from the ingestion pipeline into a
// UserMessage. Unknown errors map to a generic storage/system message
// so internals never leak to clients.
func MapError(err error) UserMessage {
	var (
		invalid   *InvalidUploadError
		schema    *SchemaError
		rows      RowErrors
		notFound  *NotFoundError
		retention *RetentionError
	)

	switch {
	case errors.As(err, &invalid):
		code := "FILE001"
		if strings.Contains(invalid.Reason, "exceeds") {
			code = "FILE002"
		}
		return UserMessage{
			Code:    code,
			Message: invalid.Error(),
			Action:  "Upload a .csv file no larger than 5 MiB",
		}
	case errors.As(err, &schema):
		return UserMessage{
			Code:    "CSV002",
			Message: schema.Error(),
			Action:  "Match the header exactly: " + strings.Join(Columns, ", "),
		}
	case errors.As(err, &rows):
		return UserMessage{
			Code:    "CSV003",
			Message: rows.Error(),
			Action:  "Fix the listed rows and upload the file again",
		}
	case errors.Is(err, ErrEmptyDataset):
		return UserMessage{
			Code:    "CSV004",
			Message: "the CSV file has no data rows",
			Action:  "Add at least one equipment row below the header",
		}
	case errors.Is(err, ErrUnreadableCSV):
		return UserMessage{
			Code:    "CSV001",
			Message: "the file could not be parsed as CSV",
			Action:  "Ensure the file is comma-separated UTF-8 text",
		}
	case errors.As(err, &notFound):
		return UserMessage{
			Code:    "DS001",
			Message: "dataset not found",
			Action:  "Check the dataset ID against your history",
		}
	case errors.As(err, &retention):
		return UserMessage{
			Code:    "ST001",
			Message: "saving the dataset failed",
			Action:  "Please try the upload again in a moment",
		}
	default:
		return UserMessage{
			Code:    "SYS001",
			Message: "an unexpected error occurred",
			Action:  "Please try again",
		}
	}
}
