package core

import "errors"

// Fatal validate errors. No job is created when one of these is returned.
var (
	ErrUnreadableFile  = errors.New("unreadable file")
	ErrEmptySheet      = errors.New("sheet has no data area")
	ErrMissingColumns  = errors.New("missing required column")
	ErrTooManyRows     = errors.New("too many rows")
	ErrInvalidMonthKey = errors.New("invalid month key")
	ErrMissingActor    = errors.New("missing actor")
)

// Lookup errors.
var (
	ErrJobNotFound    = errors.New("import job not found")
	ErrMemberNotFound = errors.New("member not found")
)

// State errors. Apply returns these before touching the member table.
var (
	ErrWrongState      = errors.New("import job is not in VALIDATED state")
	ErrHasRowErrors    = errors.New("import job has validation errors")
	ErrApplyInProgress = errors.New("import job is already being applied")
)

// ErrApplyFailed wraps the cause of a rolled back apply. The job has been
// marked FAILED by the time the caller sees it.
var ErrApplyFailed = errors.New("import failed and was rolled back")
