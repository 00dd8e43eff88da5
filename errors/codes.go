package errors

// ErrorCode identifies a specific failure. Codes are grouped by stage:
//   - E1xxx: container decode
//   - E2xxx: assembly
//   - E3xxx: container encode
type ErrorCode string

const (
	// Decode errors (E1xxx)
	E1001 ErrorCode = "E1001" // Region extends past end of buffer
	E1002 ErrorCode = "E1002" // Cursor missed a region boundary
	E1003 ErrorCode = "E1003" // Unknown opcode id
	E1004 ErrorCode = "E1004" // Unknown enum id
	E1005 ErrorCode = "E1005" // Unexpected pad byte
	E1006 ErrorCode = "E1006" // Header disagrees with stream header
	E1007 ErrorCode = "E1007" // String table not contiguous
	E1008 ErrorCode = "E1008" // Trailing data after last region
	E1009 ErrorCode = "E1009" // Text could not be decoded

	// Assembly errors (E2xxx)
	E2001 ErrorCode = "E2001" // Routine not found
	E2002 ErrorCode = "E2002" // Unknown opcode name
	E2003 ErrorCode = "E2003" // Operand count mismatch
	E2004 ErrorCode = "E2004" // Undeclared enum constant
	E2005 ErrorCode = "E2005" // Coroutine set mismatch
	E2006 ErrorCode = "E2006" // Coroutines mixed with other routines
	E2007 ErrorCode = "E2007" // Unresolved jump target
	E2008 ErrorCode = "E2008" // Parameter does not fit argument kind
	E2009 ErrorCode = "E2009" // Input list lengths differ
	E2010 ErrorCode = "E2010" // Duplicate operation index
	E2011 ErrorCode = "E2011" // First routine has no operations

	// Encode errors (E3xxx)
	E3001 ErrorCode = "E3001" // Uneven language strings
	E3002 ErrorCode = "E3002" // Value does not fit in a word
	E3003 ErrorCode = "E3003" // Text could not be encoded
	E3004 ErrorCode = "E3004" // Region has odd length
	E3005 ErrorCode = "E3005" // Routine table inconsistent
	E3006 ErrorCode = "E3006" // Operation shape mismatch
)

var codeDescriptions = map[ErrorCode]string{
	E1001: "region extends past end of buffer",
	E1002: "region boundary mismatch",
	E1003: "unknown opcode id",
	E1004: "unknown enum id",
	E1005: "unexpected pad byte",
	E1006: "header mismatch",
	E1007: "string table not contiguous",
	E1008: "trailing data",
	E1009: "undecodable text",

	E2001: "routine not found",
	E2002: "unknown opcode",
	E2003: "operand count mismatch",
	E2004: "undeclared constant",
	E2005: "coroutine mismatch",
	E2006: "mixed routine kinds",
	E2007: "unresolved jump target",
	E2008: "parameter kind mismatch",
	E2009: "input length mismatch",
	E2010: "duplicate operation index",
	E2011: "empty first routine",

	E3001: "uneven language strings",
	E3002: "value out of range",
	E3003: "unencodable text",
	E3004: "odd region length",
	E3005: "routine table inconsistent",
	E3006: "operation shape mismatch",
}

// Description returns the short description for an error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}

// String returns the error code as a string.
func (c ErrorCode) String() string {
	return string(c)
}

// Category returns the stage that produces the code.
func (c ErrorCode) Category() string {
	if len(c) < 2 {
		return "unknown"
	}
	switch c[1] {
	case '1':
		return "decode"
	case '2':
		return "assemble"
	case '3':
		return "encode"
	default:
		return "unknown"
	}
}
