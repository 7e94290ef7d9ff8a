package diag

// Diagnostic codes for the SCCP optimizer, mirroring the teacher
// compiler's internal/errors/codes.go range convention but scoped to the
// error taxonomy of spec.md section 7.
//
// Code ranges:
// W-SCCP-0xx: recoverable, value widened to Bottom, pass continues
// E-SCCP-1xx: verifier failures, rollback triggered

const (
	// CodeDivideByZero: evaluator hit integer division/modulo by zero.
	CodeDivideByZero = "W-SCCP-001"

	// CodeTypeMismatchInMeet: lattice meet combined constants of
	// different IR types; treated as malformed upstream IR.
	CodeTypeMismatchInMeet = "W-SCCP-002"

	// CodeInvalidUnicodeCodepoint: u32->Char cast target is a surrogate
	// or out of Unicode range.
	CodeInvalidUnicodeCodepoint = "W-SCCP-003"

	// CodeMaxIterationsExceeded: propagator hit the configured safety
	// iteration limit; remaining Top values in reachable code were
	// forced to Bottom.
	CodeMaxIterationsExceeded = "W-SCCP-004"

	// CodeMemoryLimitExceeded: the lattice map grew past the configured
	// memory budget; propagation stops and every value not already proven
	// Constant is widened to Bottom. No separate per-instruction constant
	// fold is run.
	CodeMemoryLimitExceeded = "W-SCCP-005"

	// CodeSSAViolation: verifier found a broken SSA invariant.
	CodeSSAViolation = "E-SCCP-101"

	// CodeCFGViolation: verifier found a broken CFG invariant.
	CodeCFGViolation = "E-SCCP-102"

	// CodeTypeViolation: verifier found an operand/result type mismatch.
	CodeTypeViolation = "E-SCCP-103"

	// CodeInvalidPhiInEntry: a phi node was found in the entry block,
	// which has no predecessors to select among. Refused before the
	// pass runs.
	CodeInvalidPhiInEntry = "E-SCCP-104"
)
