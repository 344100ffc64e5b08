package srcpack

import (
	"io"

	sl "github.com/crums-io/skipledger.go"
	"github.com/crums-io/skipledger.go/row"
)

// Read decodes a SourcePack from its wire form (spec §4.5). Fails with
// sl.ErrBadSourcePack on any structural violation.
func Read(r io.Reader) (*SourcePack, error) {
	flag, err := sl.ReadUint64(r)
	if err != nil {
		return nil, sl.Errorf(sl.ErrBadSourcePack, "srcpack: reading header flag")
	}
	iso := flag&flagIsoCount != 0

	var positive, hasIndices bool
	switch flag & schemeMask {
	case schemeNoSalt:
		positive = true
	case schemeNegative:
		hasIndices = true
	case schemePositive:
		positive = true
		hasIndices = true
	case schemeSaltAll:
	default:
		return nil, sl.Errorf(sl.ErrBadSourcePack, "srcpack: impossible scheme flag bits %#x", flag&schemeMask)
	}

	var indices []int
	if hasIndices {
		n, err := sl.ReadUint16(r)
		if err != nil {
			return nil, sl.Errorf(sl.ErrBadSourcePack, "srcpack: reading salt-index count")
		}
		indices = make([]int, n)
		for i := range indices {
			idx, err := sl.ReadUint16(r)
			if err != nil {
				return nil, sl.Errorf(sl.ErrBadSourcePack, "srcpack: reading salt index %d", i)
			}
			indices[i] = int(idx)
		}
	}
	scheme := row.NewSaltScheme(indices, positive)

	var isoCount int
	if iso {
		n, err := sl.ReadUint16(r)
		if err != nil {
			return nil, sl.Errorf(sl.ErrBadSourcePack, "srcpack: reading iso cell count")
		}
		isoCount = int(n)
	}
	cellCountSize := 1
	if !iso {
		b, err := sl.ReadByte(r)
		if err != nil {
			return nil, sl.Errorf(sl.ErrBadSourcePack, "srcpack: reading cellCountSize")
		}
		if b < 1 || b > 3 {
			return nil, sl.Errorf(sl.ErrBadSourcePack, "srcpack: cellCountSize %d out of range [1,3]", b)
		}
		cellCountSize = int(b)
	}
	varSizeLenB, err := sl.ReadByte(r)
	if err != nil {
		return nil, sl.Errorf(sl.ErrBadSourcePack, "srcpack: reading varSizeLen")
	}
	if varSizeLenB < 1 || varSizeLenB > 4 {
		return nil, sl.Errorf(sl.ErrBadSourcePack, "srcpack: varSizeLen %d out of range [1,4]", varSizeLenB)
	}
	varSizeLen := int(varSizeLenB)

	rowCount, err := sl.ReadUint32(r)
	if err != nil {
		return nil, sl.Errorf(sl.ErrBadSourcePack, "srcpack: reading row count")
	}

	rows := make([]*row.SourceRow, rowCount)
	var prevRowNo uint64
	for i := range rows {
		sr, err := readRow(r, iso, isoCount, cellCountSize, varSizeLen, scheme)
		if err != nil {
			return nil, err
		}
		if i > 0 && sr.RowNo() <= prevRowNo {
			return nil, sl.Errorf(sl.ErrBadSourcePack, "srcpack: row numbers not strictly ascending at index %d", i)
		}
		prevRowNo = sr.RowNo()
		rows[i] = sr
	}
	return &SourcePack{Scheme: scheme, Rows: rows}, nil
}

func readRow(r io.Reader, iso bool, isoCount, cellCountSize, varSizeLen int, scheme row.SaltScheme) (*row.SourceRow, error) {
	rowNo, err := sl.ReadUint64(r)
	if err != nil {
		return nil, sl.Errorf(sl.ErrBadSourcePack, "srcpack: reading row number")
	}
	cellCount := isoCount
	if !iso {
		n, err := sl.ReadUintN(r, cellCountSize)
		if err != nil {
			return nil, sl.Errorf(sl.ErrBadSourcePack, "srcpack: row %d: reading cell count", rowNo)
		}
		cellCount = int(n)
	}
	status, err := sl.ReadByte(r)
	if err != nil {
		return nil, sl.Errorf(sl.ErrBadSourcePack, "srcpack: row %d: reading status", rowNo)
	}
	hasRedacted := status&rowStatusRedacted != 0

	anySalt := hasAnySalted(scheme, cellCount)
	var rowSalt sl.Hash
	haveRowSalt := false
	if !hasRedacted && anySalt {
		rowSalt, err = sl.ReadHash(r)
		if err != nil {
			return nil, sl.Errorf(sl.ErrBadSourcePack, "srcpack: row %d: reading row salt", rowNo)
		}
		haveRowSalt = true
	}

	cells := make([]row.Cell, cellCount)
	for i := 0; i < cellCount; i++ {
		code, err := sl.ReadByte(r)
		if err != nil {
			return nil, sl.Errorf(sl.ErrBadSourcePack, "srcpack: row %d cell %d: reading code", rowNo, i)
		}
		if code == 0 {
			h, err := sl.ReadHash(r)
			if err != nil {
				return nil, sl.Errorf(sl.ErrBadSourcePack, "srcpack: row %d cell %d: reading redacted hash", rowNo, i)
			}
			cells[i] = row.RedactedCell(h)
			continue
		}
		typ := row.DataType(code)
		if !typ.Valid() {
			return nil, sl.Errorf(sl.ErrBadSourcePack, "srcpack: row %d cell %d: bad data type code %d", rowNo, i, code)
		}
		size := typ.FixedSize()
		if typ.IsVarSize() {
			n, err := sl.ReadUintN(r, varSizeLen)
			if err != nil {
				return nil, sl.Errorf(sl.ErrBadSourcePack, "srcpack: row %d cell %d: reading var size", rowNo, i)
			}
			size = int(n)
		}
		salted := !hasRedacted && scheme.IsSalted(i)
		var salt sl.Hash
		if salted {
			salt, err = sl.ReadHash(r)
			if err != nil {
				return nil, sl.Errorf(sl.ErrBadSourcePack, "srcpack: row %d cell %d: reading cell salt", rowNo, i)
			}
		}
		data := make([]byte, size)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, sl.Errorf(sl.ErrBadSourcePack, "srcpack: row %d cell %d: reading data", rowNo, i)
		}
		switch {
		case salted:
			cells[i] = row.SaltedRevealCell(typ, salt, data)
		case typ == row.NULL:
			cells[i] = row.NullUnsaltedCell()
		default:
			cells[i] = row.UnsaltedRevealCell(typ, data)
		}
	}

	if haveRowSalt {
		return row.NewSaltedSourceRow(rowNo, cells, rowSalt)
	}
	return row.NewSourceRow(rowNo, cells)
}
