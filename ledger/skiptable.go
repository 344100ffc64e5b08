// Package ledger implements the skip-ledger engine (spec §4.2 "C3"): an
// append-only store of per-row hash data that computes row hashes, and
// exposes rowHash/getRow/appendRows/statePath/getPath over an abstract
// backing SkipTable.
package ledger

import (
	sl "github.com/crums-io/skipledger.go"
	"github.com/crums-io/skipledger.go/skiprow"
)

// SkipTable is the abstract backing store a SkipLedger appends into and
// reads from (spec §6 "SkipTable"). It knows nothing about hash structure:
// it stores and returns opaque per-row byte records, keyed by row number.
type SkipTable interface {
	// Size returns the number of committed rows.
	Size() (skiprow.RowNo, error)

	// ReadRow returns the raw record stored at row rn (inputHash ‖
	// prevHashes, as encoded by the engine). Fails with
	// sl.ErrBadRowNumber if rn is out of range.
	ReadRow(rn skiprow.RowNo) ([]byte, error)

	// AddRows appends the concatenation of one or more full row records to
	// the table, which must currently be at size expectedIndex. Returns
	// the new size. Fails with sl.ErrConcurrentModification if the
	// table's actual size has since diverged from expectedIndex.
	AddRows(data []byte, expectedIndex skiprow.RowNo) (skiprow.RowNo, error)

	// TrimSize truncates the table to newSize, discarding every row
	// beyond it. For fix-mode use only (spec §4.2 "not in the normal
	// contract").
	TrimSize(newSize skiprow.RowNo) error
}

// encodeRowRecord lays out a row's persisted record: inputHash followed by
// its prevHashes, each 32 bytes.
func encodeRowRecord(inputHash sl.Hash, prevHashes []sl.Hash) []byte {
	out := make([]byte, 0, (1+len(prevHashes))*sl.HashSize)
	out = append(out, inputHash.Bytes()...)
	for _, h := range prevHashes {
		out = append(out, h.Bytes()...)
	}
	return out
}

// decodeRowRecord parses a row record for row rn, whose prevHashes count
// is fixed by skiprow.SkipCount(rn).
func decodeRowRecord(rn skiprow.RowNo, data []byte) (sl.Hash, []sl.Hash, error) {
	sc := skiprow.SkipCount(rn)
	want := (1 + sc) * sl.HashSize
	if len(data) != want {
		return sl.Hash{}, nil, sl.Errorf(sl.ErrBadSourcePack, "ledger: row %d record is %d bytes, want %d", rn, len(data), want)
	}
	inputHash, err := sl.HashFromBytes(data[:sl.HashSize])
	if err != nil {
		return sl.Hash{}, nil, err
	}
	prev := make([]sl.Hash, sc)
	for i := 0; i < sc; i++ {
		off := (1 + i) * sl.HashSize
		h, err := sl.HashFromBytes(data[off : off+sl.HashSize])
		if err != nil {
			return sl.Hash{}, nil, err
		}
		prev[i] = h
	}
	return inputHash, prev, nil
}
