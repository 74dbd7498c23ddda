package services

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers of the mutation, query, and admin APIs.
var (
	// ErrNotFound means a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrReferentialConflict means a delete was blocked by dependent records.
	ErrReferentialConflict = errors.New("referential conflict")

	// ErrInvalidAmount means an amount was zero or negative where not permitted.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrLinkInconsistency means a linked transaction pair is orphaned or
	// mismatched. Reported to the caller, never auto-repaired.
	ErrLinkInconsistency = errors.New("link inconsistency")

	// ErrGenerationHalted means the statement generator stopped mid-walk.
	ErrGenerationHalted = errors.New("statement generation halted")
)

// HaltError reports a statement generation failure together with the last
// month that was generated successfully, so the run can be resumed without
// duplicating work.
type HaltError struct {
	CardID        int
	Month         string // YYYY-MM the walk stopped at
	LastGenerated string // last successfully generated YYYY-MM, empty if none
	Err           error
}

func (e *HaltError) Error() string {
	if e.LastGenerated == "" {
		return fmt.Sprintf("card %d: generation halted at %s: %v", e.CardID, e.Month, e.Err)
	}
	return fmt.Sprintf("card %d: generation halted at %s (last generated %s): %v",
		e.CardID, e.Month, e.LastGenerated, e.Err)
}

func (e *HaltError) Unwrap() error { return e.Err }

// Is reports ErrGenerationHalted so callers can match the kind without
// unwrapping the cause.
func (e *HaltError) Is(target error) bool { return target == ErrGenerationHalted }
