package row

import (
	sl "github.com/crums-io/skipledger.go"
)

// SourceRow is an ordered list of cells, typed in parallel, carrying a
// positive row number and an optional row salt (spec §3 "SourceRow").
type SourceRow struct {
	rowNo   uint64
	cells   []Cell
	rowSalt sl.Hash
	salted  bool // whether rowSalt is meaningful
}

// NewSourceRow builds a row from its cells. Requires at least one cell and
// at least one non-NULL cell (spec §3 invariants).
func NewSourceRow(rowNo uint64, cells []Cell) (*SourceRow, error) {
	return newSourceRow(rowNo, cells, sl.Hash{}, false)
}

// NewSaltedSourceRow builds a row that carries a row salt, for use by any
// of its RowSaltedReveal/NullRowSalted cells.
func NewSaltedSourceRow(rowNo uint64, cells []Cell, rowSalt sl.Hash) (*SourceRow, error) {
	return newSourceRow(rowNo, cells, rowSalt, true)
}

func newSourceRow(rowNo uint64, cells []Cell, rowSalt sl.Hash, salted bool) (*SourceRow, error) {
	if rowNo < 1 {
		return nil, sl.Errorf(sl.ErrBadRowNumber, "sourcerow: rowNo must be >= 1, got %d", rowNo)
	}
	if len(cells) == 0 {
		return nil, sl.Errorf(sl.ErrSchemaMismatch, "sourcerow: must have at least one cell")
	}
	allNull := true
	for _, c := range cells {
		if !c.IsNull() {
			allNull = false
			break
		}
	}
	if allNull {
		return nil, sl.Errorf(sl.ErrSchemaMismatch, "sourcerow: at least one cell must be non-NULL")
	}
	return &SourceRow{
		rowNo:   rowNo,
		cells:   append([]Cell(nil), cells...),
		rowSalt: rowSalt,
		salted:  salted,
	}, nil
}

// RowNo returns the row's row number.
func (r *SourceRow) RowNo() uint64 { return r.rowNo }

// Len returns the number of cells.
func (r *SourceRow) Len() int { return len(r.cells) }

// Cell returns the cell at index i.
func (r *SourceRow) Cell(i int) Cell { return r.cells[i] }

// Cells returns a copy of the row's cells, in order.
func (r *SourceRow) Cells() []Cell { return append([]Cell(nil), r.cells...) }

// RowSalt returns the row's salt and whether it carries one.
func (r *SourceRow) RowSalt() (sl.Hash, bool) { return r.rowSalt, r.salted }

// Hash computes the row's input-hash per spec §3 "SourceRow": sentinel if
// zero cells (impossible given the constructor's invariant, kept for
// completeness), the lone cell's hash if exactly one, otherwise
// SHA-256 of the concatenated per-cell hashes.
func (r *SourceRow) Hash() sl.Hash {
	switch len(r.cells) {
	case 0:
		return sl.Sentinel
	case 1:
		return r.cells[0].Hash()
	default:
		hashes := make([]sl.Hash, len(r.cells))
		for i, c := range r.cells {
			hashes[i] = c.Hash()
		}
		return sl.SumHashes(hashes...)
	}
}

// MatchesScheme reports whether every non-redacted cell's salted-ness
// agrees with scheme (spec §3 "every added source row's cells must match
// the scheme ... except redacted cells").
func (r *SourceRow) MatchesScheme(scheme SaltScheme) bool {
	for i, c := range r.cells {
		if c.IsRedacted() {
			continue
		}
		if c.HasSalt() != scheme.IsSalted(i) {
			return false
		}
	}
	return true
}

// Redact returns a new SourceRow with the cell at index i replaced by its
// redacted form. The row's Hash() is unchanged (spec §9 invariant:
// "redacting any single non-null, non-hash cell yields a row whose hash()
// is identical to the original's" -- which in fact holds for any cell,
// since Cell.Redact preserves Cell.Hash exactly).
func (r *SourceRow) Redact(i int) (*SourceRow, error) {
	if i < 0 || i >= len(r.cells) {
		return nil, sl.Errorf(sl.ErrBadRowNumber, "sourcerow: cell index %d out of range [0,%d)", i, len(r.cells))
	}
	cells := append([]Cell(nil), r.cells...)
	cells[i] = cells[i].Redact()
	return &SourceRow{rowNo: r.rowNo, cells: cells, rowSalt: r.rowSalt, salted: r.salted}, nil
}
