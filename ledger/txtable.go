package ledger

import (
	sl "github.com/crums-io/skipledger.go"
	"github.com/crums-io/skipledger.go/skiprow"
)

// TxTable is a SkipTable decorator providing a transaction view over an
// underlying table (SPEC_FULL.md §3 "Transaction view"): writes via
// AddRows are buffered in memory and only become visible to ReadRow/Size
// once Commit is called; Rollback discards them. It does not provide
// isolation from other writers of the underlying table -- only a
// single-writer staging area, matching the skip-ledger's single-writer
// append model (spec's Non-goals exclude transactional isolation beyond
// that).
type TxTable struct {
	under   SkipTable
	pending []byte
	count   skiprow.RowNo
}

// NewTxTable wraps under in a transaction view.
func NewTxTable(under SkipTable) *TxTable {
	return &TxTable{under: under}
}

// Size reports the underlying committed size plus any pending, uncommitted
// rows staged in this transaction.
func (t *TxTable) Size() (skiprow.RowNo, error) {
	base, err := t.under.Size()
	if err != nil {
		return 0, err
	}
	return base + t.count, nil
}

// ReadRow serves pending rows from the staging buffer and falls through to
// the underlying table for committed ones.
func (t *TxTable) ReadRow(rn skiprow.RowNo) ([]byte, error) {
	base, err := t.under.Size()
	if err != nil {
		return nil, err
	}
	if rn <= base {
		return t.under.ReadRow(rn)
	}
	if rn > base+t.count {
		return nil, sl.Errorf(sl.ErrBadRowNumber, "txtable: row %d exceeds pending size %d", rn, base+t.count)
	}
	// Pending rows are fixed-width only per-row by skipCount, so scanning
	// is required to find the byte offset of row rn within the buffer.
	off := 0
	for r := base + 1; r < rn; r++ {
		off += (1 + skiprow.SkipCount(r)) * sl.HashSize
	}
	width := (1 + skiprow.SkipCount(rn)) * sl.HashSize
	if off+width > len(t.pending) {
		return nil, sl.Errorf(sl.ErrBadRowNumber, "txtable: pending buffer too short for row %d", rn)
	}
	return append([]byte(nil), t.pending[off:off+width]...), nil
}

// AddRows stages new rows in the pending buffer without touching the
// underlying table. expectedIndex must equal the current (base+pending)
// size.
func (t *TxTable) AddRows(data []byte, expectedIndex skiprow.RowNo) (skiprow.RowNo, error) {
	cur, err := t.Size()
	if err != nil {
		return 0, err
	}
	if expectedIndex != cur {
		return 0, sl.Errorf(sl.ErrConcurrentModification, "txtable: expected index %d, table is at %d", expectedIndex, cur)
	}
	rows, err := countRows(cur, data)
	if err != nil {
		return 0, err
	}
	t.pending = append(t.pending, data...)
	t.count += skiprow.RowNo(rows)
	return cur + skiprow.RowNo(rows), nil
}

func countRows(base skiprow.RowNo, data []byte) (int, error) {
	off := 0
	rows := 0
	rn := base + 1
	for off < len(data) {
		width := (1 + skiprow.SkipCount(rn)) * sl.HashSize
		if off+width > len(data) {
			return 0, sl.Errorf(sl.ErrBadSourcePack, "txtable: malformed row batch starting at row %d", rn)
		}
		off += width
		rows++
		rn++
	}
	return rows, nil
}

// TrimSize discards pending rows beyond newSize if newSize is still within
// the pending range; trimming into committed territory is delegated to
// the underlying table.
func (t *TxTable) TrimSize(newSize skiprow.RowNo) error {
	base, err := t.under.Size()
	if err != nil {
		return err
	}
	if newSize <= base {
		t.pending = nil
		t.count = 0
		return t.under.TrimSize(newSize)
	}
	keep := newSize - base
	off := 0
	for r := base + 1; r <= newSize; r++ {
		off += (1 + skiprow.SkipCount(r)) * sl.HashSize
	}
	t.pending = t.pending[:off]
	t.count = keep
	return nil
}

// Commit flushes every pending row into the underlying table and clears
// the staging buffer.
func (t *TxTable) Commit() (skiprow.RowNo, error) {
	if t.count == 0 {
		return t.under.Size()
	}
	base, err := t.under.Size()
	if err != nil {
		return 0, err
	}
	newSize, err := t.under.AddRows(t.pending, base)
	if err != nil {
		return 0, err
	}
	t.pending = nil
	t.count = 0
	return newSize, nil
}

// Rollback discards every pending row without touching the underlying
// table.
func (t *TxTable) Rollback() {
	t.pending = nil
	t.count = 0
}
