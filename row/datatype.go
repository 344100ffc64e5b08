// Package row implements the source-row model (spec §4.4): typed,
// optionally salted cells, source rows built from them, and the salt
// scheme and table-salt machinery that determine which cells require it.
package row

import sl "github.com/crums-io/skipledger.go"

// DataType is the 1-based cell-type code used on the wire (spec §3
// "DataType"). There is no floating-point type.
type DataType uint8

const (
	// STRING is a variable-length UTF-8 string.
	STRING DataType = iota + 1
	// LONG is an 8-byte big-endian signed integer.
	LONG
	// DATE is an 8-byte big-endian UTC-millis timestamp.
	DATE
	// BOOL is a single byte, 0 or 1.
	BOOL
	// BYTES is a variable-length opaque blob.
	BYTES
	// HASH is a fixed 32-byte value, never rehashed upstream: the bytes
	// stored in the cell are used directly as its cell data, hashed by the
	// same salted/unsalted rule as every other type, but never wrapped in
	// an extra hashing step before that.
	HASH
	// NULL cells carry no payload; their data is always the single byte
	// 0x00.
	NULL
)

func (t DataType) String() string {
	switch t {
	case STRING:
		return "STRING"
	case LONG:
		return "LONG"
	case DATE:
		return "DATE"
	case BOOL:
		return "BOOL"
	case BYTES:
		return "BYTES"
	case HASH:
		return "HASH"
	case NULL:
		return "NULL"
	default:
		return "UNKNOWN"
	}
}

// IsVarSize reports whether values of type t are variable-length on the
// wire (STRING, BYTES); all others have a fixed size.
func (t DataType) IsVarSize() bool {
	return t == STRING || t == BYTES
}

// FixedSize returns the fixed wire size of type t, or 0 if t is var-size.
func (t DataType) FixedSize() int {
	switch t {
	case LONG, DATE:
		return 8
	case BOOL, NULL:
		return 1
	case HASH:
		return sl.HashSize
	default:
		return 0
	}
}

// Valid reports whether t is one of the known, non-zero codes.
func (t DataType) Valid() bool {
	return t >= STRING && t <= NULL
}
