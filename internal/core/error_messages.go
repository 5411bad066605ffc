package core

// error_messages.go maps technical errors to user-facing messages with a
// code that operators can quote to support.
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Missing columns: the header lacks a required column
//	IMP002 - Empty sheet: no header row or no sheet at all
//	IMP003 - Unreadable file: not a valid XLSX or CSV file
//	IMP004 - Too many rows: the sheet exceeds the row limit
//	IMP005 - Invalid month: monthKey is not YYYY-MM
//	IMP006 - Wrong state: the job is already APPLIED or FAILED
//	IMP007 - Row errors: the job has validation errors and cannot be applied
//	IMP008 - Apply failed: the import was rolled back and marked FAILED
//	IMP009 - Apply in progress: another apply of the same job holds the lock
//	IMP010 - Too many imports: all validate slots are busy
//
// # Lookup Errors (NF001-NF099)
//
//	NF001 - Import job not found
//	NF002 - Member not found
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Missing actor: no acting user on the request
//	REQ002 - Invalid member: required member fields are missing
//	REQ003 - Request cancelled
//	REQ004 - Request timed out
//
// # Database Errors (DB001-DB099)
//
// Matched by message pattern, since they arrive from the driver:
//
//	DB001 - Unique constraint
//	DB002 - Connection refused or reset
//	DB003 - Deadlock or serialization failure
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the application logs for the
// technical error.

import (
	"context"
	"errors"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

type sentinelMessage struct {
	err error
	msg UserMessage
}

// sentinelMessages is checked with errors.Is, in order.
var sentinelMessages = []sentinelMessage{
	{ErrApplyFailed, UserMessage{
		Message: "The import failed and was rolled back",
		Action:  "No members were changed. Review the job error and validate the file again",
		Code:    "IMP008",
	}},
	{ErrMissingColumns, UserMessage{
		Message: "A required column is missing from the file",
		Action:  "The header must contain memberNumber, firstName, lastName and action",
		Code:    "IMP001",
	}},
	{ErrEmptySheet, UserMessage{
		Message: "The file has no data",
		Action:  "Upload a sheet with a header row followed by member rows",
		Code:    "IMP002",
	}},
	{ErrUnreadableFile, UserMessage{
		Message: "The file could not be read",
		Action:  "Upload an .xlsx workbook or a UTF-8 CSV file",
		Code:    "IMP003",
	}},
	{ErrTooManyRows, UserMessage{
		Message: "The file has too many rows",
		Action:  "Split the file into smaller imports",
		Code:    "IMP004",
	}},
	{ErrInvalidMonthKey, UserMessage{
		Message: "The month is not valid",
		Action:  "Use the YYYY-MM format, for example 2026-02",
		Code:    "IMP005",
	}},
	{ErrWrongState, UserMessage{
		Message: "This import has already been applied or has failed",
		Action:  "Validate the file again to create a new import",
		Code:    "IMP006",
	}},
	{ErrHasRowErrors, UserMessage{
		Message: "This import has validation errors",
		Action:  "Fix the listed rows and validate the corrected file",
		Code:    "IMP007",
	}},
	{ErrApplyInProgress, UserMessage{
		Message: "This import is already being applied",
		Action:  "Wait for the running apply to finish",
		Code:    "IMP009",
	}},
	{ErrTooManyImports, UserMessage{
		Message: "The system is busy processing other imports",
		Action:  "Please wait a moment and try again",
		Code:    "IMP010",
	}},
	{ErrJobNotFound, UserMessage{
		Message: "Import not found",
		Action:  "Check the import id",
		Code:    "NF001",
	}},
	{ErrMemberNotFound, UserMessage{
		Message: "Member not found",
		Action:  "Check the member number",
		Code:    "NF002",
	}},
	{ErrMissingActor, UserMessage{
		Message: "The acting user is not known",
		Action:  "Send the acting user id with the request",
		Code:    "REQ001",
	}},
	{ErrInvalidMember, UserMessage{
		Message: "The member data is incomplete",
		Action:  "firstName and lastName are required",
		Code:    "REQ002",
	}},
	{context.Canceled, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "REQ003",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "REQ004",
	}},
}

// errorPattern matches driver errors that carry no sentinel.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{"violates unique", UserMessage{
		Message: "A member with this number already exists",
		Action:  "Validate the file again against the current member list",
		Code:    "DB001",
	}},
	{"duplicate key", UserMessage{
		Message: "A member with this number already exists",
		Action:  "Validate the file again against the current member list",
		Code:    "DB001",
	}},
	{"connection refused", UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB002",
	}},
	{"connection reset", UserMessage{
		Message: "Database connection was interrupted",
		Action:  "Please try again",
		Code:    "DB002",
	}},
	{"deadlock", UserMessage{
		Message: "Database was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB003",
	}},
	{"could not serialize", UserMessage{
		Message: "Database was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB003",
	}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-facing message. Sentinel errors are
// matched first, then driver message patterns, then the ERR000 fallback.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// IsUserFacing reports whether err maps to something more specific than
// ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
