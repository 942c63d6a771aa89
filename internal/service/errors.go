package service

import "fmt"

// MissingIdentifierError indicates a candidate row with no derivable id.
type MissingIdentifierError struct {
	Row int
}

func (e *MissingIdentifierError) Error() string {
	return fmt.Sprintf("no report number or ticket number derivable from row %d", e.Row)
}

// MissingHandlerError indicates a candidate without a handler whose status
// does not permit the default-handler fallback.
type MissingHandlerError struct {
	ReportNumber string
	Row          int
}

func (e *MissingHandlerError) Error() string {
	return fmt.Sprintf("handler missing for ticket %s (row %d)", e.ReportNumber, e.Row)
}

// InvalidDateError flags an unparseable report date. The reconciler
// recovers by substituting the current time; this error is logged, never
// returned to callers.
type InvalidDateError struct {
	ReportNumber string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid report date for ticket %s, substituting current time", e.ReportNumber)
}

// PersistenceError wraps a failure from the underlying record store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
