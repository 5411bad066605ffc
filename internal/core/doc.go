// Package core is the membership import engine.
//
// It holds the domain logic independent of any transport or database. The
// web package drives it over HTTP and the store package backs it with
// PostgreSQL, and tests run it against an in-memory store.
//
// # Two-Phase Import
//
// An import runs in two phases:
//
//  1. [Service.Validate] reads a spreadsheet with [ReadSheet], parses its rows
//     with [ParseRows], drops duplicate member numbers, diffs every remaining
//     row against the member table with [BuildPlan] and stores the plan as a
//     VALIDATED [ImportJob] with one [ImportChange] per row.
//  2. [Service.Apply] replays the stored changes in one transaction and moves
//     the job to APPLIED. If any change fails, the transaction is rolled back
//     and the job is marked FAILED in a separate write.
//
// Row problems never fail Validate. They are returned with the plan and
// block a later Apply.
//
// # Change Kinds
//
//	CREATE  the member number is new, the full snapshot is stored
//	UPDATE  only the differing fields are stored, before and after
//	DELETE  the row asked for removal of a live member
//	NOOP    the row matches the member table
//
// # Error Handling
//
// Failures are sentinel errors wrapped with context. [MapError] turns them
// into user-facing messages with a code for support reference:
//
//   - IMP001-IMP010: Import errors (file, columns, state, apply)
//   - NF001-NF002: Lookup errors
//   - REQ001-REQ004: Request errors
//   - DB001-DB003: Database errors
//
// # Audit Logging
//
// Validate, apply, failed apply and direct member creation each write one
// [AuditEntry]. Audit failures are logged and never fail the operation.
package core
