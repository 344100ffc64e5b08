package row

import sl "github.com/crums-io/skipledger.go"

// variant distinguishes the cases of the Cell tagged union (spec §3
// "Cell").
type variant uint8

const (
	variantRedacted variant = iota
	variantUnsaltedReveal
	variantSaltedReveal
	variantRowSaltedReveal
	variantNullUnsalted
	variantNullRowSalted
)

var nullByte = []byte{0x00}

// Cell is one column value of a SourceRow. Its Hash depends on its
// variant: a Redacted cell simply reports the hash it was constructed
// with; every revealing variant hashes its (optionally salted) data.
type Cell struct {
	v            variant
	typ          DataType
	data         []byte
	salt         sl.Hash
	redactedHash sl.Hash
}

// RedactedCell builds a cell that stores only hash -- the original data
// and type are gone.
func RedactedCell(hash sl.Hash) Cell {
	return Cell{v: variantRedacted, redactedHash: hash}
}

// UnsaltedRevealCell builds an unsalted, visible cell: hash = SHA-256(data).
func UnsaltedRevealCell(typ DataType, data []byte) Cell {
	return Cell{v: variantUnsaltedReveal, typ: typ, data: append([]byte(nil), data...)}
}

// SaltedRevealCell builds a visible cell salted with an explicit salt:
// hash = SHA-256(salt ‖ data).
func SaltedRevealCell(typ DataType, salt sl.Hash, data []byte) Cell {
	return Cell{v: variantSaltedReveal, typ: typ, salt: salt, data: append([]byte(nil), data...)}
}

// RowSaltedRevealCell builds a visible cell whose salt is derived from the
// row's salt and its own column index (spec §4.4): cellSalt =
// SHA-256(rowSalt ‖ be(cellIndex)); hash = SHA-256(cellSalt ‖ data).
func RowSaltedRevealCell(typ DataType, rowSalt sl.Hash, cellIndex int, data []byte) Cell {
	salt := DeriveCellSalt(rowSalt, cellIndex)
	return Cell{v: variantRowSaltedReveal, typ: typ, salt: salt, data: append([]byte(nil), data...)}
}

// NullUnsaltedCell builds an unsalted NULL cell: data is the single byte
// 0x00, hash = SHA-256(0x00).
func NullUnsaltedCell() Cell {
	return Cell{v: variantNullUnsalted, typ: NULL, data: nullByte}
}

// NullRowSaltedCell builds a row-salted NULL cell: data is still 0x00, but
// hashed with the column's derived cell-salt.
func NullRowSaltedCell(rowSalt sl.Hash, cellIndex int) Cell {
	salt := DeriveCellSalt(rowSalt, cellIndex)
	return Cell{v: variantNullRowSalted, typ: NULL, salt: salt, data: nullByte}
}

// Type returns the cell's declared data type. Meaningless (zero value) for
// a Redacted cell, whose type is not retained.
func (c Cell) Type() DataType { return c.typ }

// IsRedacted reports whether c is the Redacted variant.
func (c Cell) IsRedacted() bool { return c.v == variantRedacted }

// IsNull reports whether c is one of the NULL variants.
func (c Cell) IsNull() bool { return c.v == variantNullUnsalted || c.v == variantNullRowSalted }

// HasSalt reports whether c's variant is one of the salted reveal
// variants. Redacted cells report false and are exempt from SaltScheme
// validation regardless (spec §3 "except redacted cells").
func (c Cell) HasSalt() bool {
	return c.v == variantSaltedReveal || c.v == variantRowSaltedReveal || c.v == variantNullRowSalted
}

// Data returns the cell's raw payload bytes. Empty for a Redacted cell.
func (c Cell) Data() []byte { return append([]byte(nil), c.data...) }

// Salt returns the cell's salt and true, for any salted variant. Returns
// the zero hash and false otherwise.
func (c Cell) Salt() (sl.Hash, bool) {
	if !c.HasSalt() {
		return sl.Hash{}, false
	}
	return c.salt, true
}

// Hash computes the cell's hash per its variant (spec §3 "Cell").
func (c Cell) Hash() sl.Hash {
	switch c.v {
	case variantRedacted:
		return c.redactedHash
	case variantUnsaltedReveal, variantNullUnsalted:
		return sl.Sum(c.data)
	default: // variantSaltedReveal, variantRowSaltedReveal, variantNullRowSalted
		return sl.Sum(c.salt[:], c.data)
	}
}

// Redact returns a new cell with the same hash as c but with its data (and
// type) discarded -- only the hash remains. Redacting an already-redacted
// cell returns it unchanged.
func (c Cell) Redact() Cell {
	if c.IsRedacted() {
		return c
	}
	return RedactedCell(c.Hash())
}
