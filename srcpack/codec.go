// Package srcpack implements the binary source-pack codec (spec §4.5):
// a schema-adaptive serialization of a bag of SourceRows sharing one
// SaltScheme, with per-file derived field widths and per-cell redaction.
package srcpack

import (
	"io"

	sl "github.com/crums-io/skipledger.go"
	"github.com/crums-io/skipledger.go/row"
)

// schema flag bits (spec §4.5 "Header"). Bit 0 is ISO_COUNT; bits 1-2 hold
// one of four literal values enumerating the salt scheme, matched exactly
// to the spec's table rather than decomposed into independent bits:
//
//	00  NO_SALT               no indices array follows
//	10  positive explicit set indices array follows, enumerates salted cells
//	01  negative explicit set indices array follows, enumerates unsalted cells
//	11  SALT_ALL              no indices array follows
const (
	flagIsoCount = 1 << 0

	schemeNoSalt   = 0 << 1 // 00
	schemeNegative = 1 << 1 // 01: unsalted-exception indices follow
	schemePositive = 2 << 1 // 10: salted indices follow
	schemeSaltAll  = 3 << 1 // 11: all salted
	schemeMask     = 3 << 1
)

// rowStatus bits.
const rowStatusRedacted = 1 << 0

// SourcePack is a decoded bag of source rows sharing one SaltScheme.
// Ascending by row number (spec §3 "SourceBag").
type SourcePack struct {
	Scheme row.SaltScheme
	Rows   []*row.SourceRow
}

// New validates rows (strictly ascending row numbers, each matching
// scheme) and returns a SourcePack.
func New(scheme row.SaltScheme, rows []*row.SourceRow) (*SourcePack, error) {
	if len(rows) == 0 {
		return nil, sl.Errorf(sl.ErrBadSourcePack, "srcpack: empty row set")
	}
	var prev uint64
	for i, r := range rows {
		if i > 0 && r.RowNo() <= prev {
			return nil, sl.Errorf(sl.ErrBadSourcePack, "srcpack: row numbers not strictly ascending at index %d", i)
		}
		if !r.MatchesScheme(scheme) {
			return nil, sl.Errorf(sl.ErrSchemaMismatch, "srcpack: row %d does not match salt scheme", r.RowNo())
		}
		prev = r.RowNo()
	}
	return &SourcePack{Scheme: scheme, Rows: append([]*row.SourceRow(nil), rows...)}, nil
}

// cellCountSize/varSizeLen bounds (spec §4.5: cellCountSize in {1,2,3};
// varSizeLen in 1..4).
func widthFor(maxVal uint64, maxBytes int) int {
	n := 1
	for n < maxBytes {
		if maxVal < (uint64(1) << uint(8*n)) {
			break
		}
		n++
	}
	return n
}

// Write encodes pk to w per the wire format of spec §4.5. Rows must already
// be sorted ascending by row number (SourcePack construction enforces
// this); cellCountSize and varSizeLen are derived from the observed maxima
// as encoding accumulates, then written into the header.
func (pk *SourcePack) Write(w io.Writer) error {
	if len(pk.Rows) == 0 {
		return sl.Errorf(sl.ErrBadSourcePack, "srcpack: cannot encode an empty row set")
	}

	isoCount := pk.Rows[0].Len()
	iso := true
	maxCellCount := uint64(0)
	maxVarSize := uint64(0)
	for _, r := range pk.Rows {
		if r.Len() != isoCount {
			iso = false
		}
		if uint64(r.Len()) > maxCellCount {
			maxCellCount = uint64(r.Len())
		}
		for i := 0; i < r.Len(); i++ {
			c := r.Cell(i)
			if c.IsRedacted() {
				continue
			}
			if sz := len(c.Data()); uint64(sz) > maxVarSize {
				maxVarSize = uint64(sz)
			}
		}
	}

	indices := pk.Scheme.Indices()
	positive := pk.Scheme.Positive()
	hasIndices := len(indices) > 0

	var flag uint64
	if iso {
		flag |= flagIsoCount
	}
	switch {
	case !hasIndices && positive:
		flag |= schemeNoSalt
	case hasIndices && !positive:
		flag |= schemeNegative
	case hasIndices && positive:
		flag |= schemePositive
	default: // !hasIndices && !positive
		flag |= schemeSaltAll
	}
	if err := sl.WriteUint64(w, flag); err != nil {
		return err
	}
	if hasIndices {
		if err := sl.WriteUint16(w, uint16(len(indices))); err != nil {
			return err
		}
		for _, idx := range indices {
			if err := sl.WriteUint16(w, uint16(idx)); err != nil {
				return err
			}
		}
	}
	if iso {
		if err := sl.WriteUint16(w, uint16(isoCount)); err != nil {
			return err
		}
	}
	cellCountSize := widthFor(maxCellCount, 3)
	if !iso {
		if err := sl.WriteByte(w, byte(cellCountSize)); err != nil {
			return err
		}
	}
	varSizeLen := widthFor(maxVarSize, 4)
	if varSizeLen == 0 {
		varSizeLen = 1
	}
	if err := sl.WriteByte(w, byte(varSizeLen)); err != nil {
		return err
	}

	if err := sl.WriteUint32(w, uint32(len(pk.Rows))); err != nil {
		return err
	}
	anySalt := hasAnySalted(pk.Scheme, 0)
	for _, r := range pk.Rows {
		if err := writeRow(w, r, iso, cellCountSize, varSizeLen, pk.Scheme, anySalt); err != nil {
			return err
		}
	}
	return nil
}

// hasAnySalted reports whether scheme salts any column at all. For a
// "positive" scheme (indices enumerate the salted columns), that is simply
// a non-empty index set. For a "negative" scheme (indices enumerate
// unsalted exceptions), every column is salted except the listed
// exceptions, so some column is salted unless the scheme is degenerate.
func hasAnySalted(scheme row.SaltScheme, _ int) bool {
	if scheme.Positive() {
		return len(scheme.Indices()) > 0
	}
	return true
}

func writeRow(w io.Writer, r *row.SourceRow, iso bool, cellCountSize, varSizeLen int, scheme row.SaltScheme, anySalt bool) error {
	if err := sl.WriteUint64(w, r.RowNo()); err != nil {
		return err
	}
	if !iso {
		if err := sl.WriteUintN(w, uint64(r.Len()), cellCountSize); err != nil {
			return err
		}
	}

	hasRedacted := false
	for i := 0; i < r.Len(); i++ {
		if r.Cell(i).IsRedacted() {
			hasRedacted = true
			break
		}
	}
	var status byte
	if hasRedacted {
		status |= rowStatusRedacted
	}
	if err := sl.WriteByte(w, status); err != nil {
		return err
	}

	if !hasRedacted && anySalt {
		rowSalt, ok := r.RowSalt()
		if !ok {
			return sl.Errorf(sl.ErrBadSourcePack, "srcpack: row %d has salted cells but no row salt", r.RowNo())
		}
		if err := sl.WriteHash(w, rowSalt); err != nil {
			return err
		}
	}

	for i := 0; i < r.Len(); i++ {
		c := r.Cell(i)
		if c.IsRedacted() {
			if err := sl.WriteByte(w, 0); err != nil {
				return err
			}
			h := c.Hash()
			if err := sl.WriteHash(w, h); err != nil {
				return err
			}
			continue
		}
		if err := sl.WriteByte(w, byte(c.Type())); err != nil {
			return err
		}
		data := c.Data()
		if c.Type().IsVarSize() {
			if err := sl.WriteUintN(w, uint64(len(data)), varSizeLen); err != nil {
				return err
			}
		}
		if !hasRedacted && c.HasSalt() {
			salt, _ := c.Salt()
			if err := sl.WriteHash(w, salt); err != nil {
				return err
			}
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return nil
}
