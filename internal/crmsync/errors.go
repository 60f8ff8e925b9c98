package crmsync

import "fmt"

// EntityResolutionError means a Person or Organization could not be found or
// created. The submission continues without that id.
type EntityResolutionError struct {
	Entity string // "person" or "organization"
	Key    string // natural key: email or organization name
	Op     string // "search" or "create"
	Err    error
}

func (e *EntityResolutionError) Error() string {
	return fmt.Sprintf("resolve %s %q: %s: %v", e.Entity, e.Key, e.Op, e.Err)
}

func (e *EntityResolutionError) Unwrap() error { return e.Err }

// DealWriteError means the deal was not created. It is the only CRM failure
// that fails the submission.
type DealWriteError struct {
	Title string
	Err   error
}

func (e *DealWriteError) Error() string {
	return fmt.Sprintf("create deal %q: %v", e.Title, e.Err)
}

func (e *DealWriteError) Unwrap() error { return e.Err }

// NoteWriteError means the deal exists but its note could not be attached.
type NoteWriteError struct {
	DealID int64
	Err    error
}

func (e *NoteWriteError) Error() string {
	return fmt.Sprintf("attach note to deal %d: %v", e.DealID, e.Err)
}

func (e *NoteWriteError) Unwrap() error { return e.Err }
