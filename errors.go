package trendlake

import (
	"fmt"

	"github.com/pkg/errors"
)

// MalformedInputError reports a source document that could not be parsed as
// either a JSON document or delimited text. It aborts only that file's
// contribution to the batch.
type MalformedInputError struct {
	FileKey string
	Err     error
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input %q: %v", e.FileKey, e.Err)
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

// Cause supports pkg/errors cause chains.
func (e *MalformedInputError) Cause() error { return e.Err }

// SchemaViolationError reports a row missing a required key after coercion.
// The row is dropped; the batch continues.
type SchemaViolationError struct {
	FileKey  string
	RowIndex int
	Column   string
	Reason   string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("schema violation in %q row %d: column %q %s", e.FileKey, e.RowIndex, e.Column, e.Reason)
}

// TransientStorageError reports a storage read or write failure that may
// succeed on retry. Storage implementations wrap their I/O errors in this
// type so the orchestrator can tell retryable failures from deterministic
// ones.
type TransientStorageError struct {
	Op  string
	Key string
	Err error
}

func (e *TransientStorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *TransientStorageError) Unwrap() error { return e.Err }

// Cause supports pkg/errors cause chains.
func (e *TransientStorageError) Cause() error { return e.Err }

// IsTransient reports whether err has a TransientStorageError in its chain.
func IsTransient(err error) bool {
	var te *TransientStorageError
	return errors.As(err, &te)
}

// PartitionWriteError reports a partition flush that failed after the retry
// bound was exhausted. Other partitions in the batch proceed independently.
type PartitionWriteError struct {
	Partition string
	Err       error
}

func (e *PartitionWriteError) Error() string {
	return fmt.Sprintf("writing partition %q: %v", e.Partition, e.Err)
}

func (e *PartitionWriteError) Unwrap() error { return e.Err }

// Cause supports pkg/errors cause chains.
func (e *PartitionWriteError) Cause() error { return e.Err }

// CatalogUnavailableError reports that the dedup-key catalog could not be
// reached. It fails the whole event; since no write has occurred by the
// dedup stage, the event is safe to retry wholesale.
type CatalogUnavailableError struct {
	Err error
}

func (e *CatalogUnavailableError) Error() string {
	return fmt.Sprintf("catalog unavailable: %v", e.Err)
}

func (e *CatalogUnavailableError) Unwrap() error { return e.Err }

// Cause supports pkg/errors cause chains.
func (e *CatalogUnavailableError) Cause() error { return e.Err }
