package row

import (
	"encoding/binary"
	"time"

	sl "github.com/crums-io/skipledger.go"
)

// SourceRowBuilder validates and assembles SourceRows against a fixed
// SaltScheme (spec §4.4). A TableSalt handle is only required when the
// scheme salts at least one of the columns the builder is asked to build.
type SourceRowBuilder struct {
	scheme SaltScheme
	salt   *Handle
}

// NewSourceRowBuilder returns a builder for scheme. salt may be nil if the
// caller never builds a row with a salted column; Build returns
// sl.ErrUnsupported if that turns out not to hold.
func NewSourceRowBuilder(scheme SaltScheme, salt *Handle) *SourceRowBuilder {
	return &SourceRowBuilder{scheme: scheme, salt: salt}
}

// Build assembles a row at rowNo from parallel types/values slices.
// Validates cell count, type/value compatibility (rejecting floats with
// sl.ErrUnsupported), and that each cell's required salted-ness matches
// the builder's scheme (sl.ErrSchemaMismatch).
func (b *SourceRowBuilder) Build(rowNo uint64, types []DataType, values []interface{}) (*SourceRow, error) {
	if len(types) != len(values) {
		return nil, sl.Errorf(sl.ErrSchemaMismatch, "sourcerow builder: %d types but %d values", len(types), len(values))
	}

	needsSalt := false
	for i := range types {
		if b.scheme.IsSalted(i) {
			needsSalt = true
			break
		}
	}
	var rowSalt sl.Hash
	if needsSalt {
		if b.salt == nil {
			return nil, sl.Errorf(sl.ErrUnsupported, "sourcerow builder: scheme requires salt but no TableSalt handle configured")
		}
		rowSalt = b.salt.RowSalt(rowNo)
	}

	cells := make([]Cell, len(types))
	for i, typ := range types {
		salted := b.scheme.IsSalted(i)
		cell, err := buildCell(typ, values[i], i, rowSalt, salted)
		if err != nil {
			return nil, err
		}
		cells[i] = cell
	}

	if needsSalt {
		return NewSaltedSourceRow(rowNo, cells, rowSalt)
	}
	return NewSourceRow(rowNo, cells)
}

func buildCell(typ DataType, value interface{}, index int, rowSalt sl.Hash, salted bool) (Cell, error) {
	if !typ.Valid() {
		return Cell{}, sl.Errorf(sl.ErrSchemaMismatch, "sourcerow builder: unknown data type code %d at index %d", typ, index)
	}
	switch value.(type) {
	case float32, float64:
		return Cell{}, sl.Errorf(sl.ErrUnsupported, "sourcerow builder: floating-point values are not supported (index %d)", index)
	}

	if typ == NULL || value == nil {
		if typ != NULL {
			return Cell{}, sl.Errorf(sl.ErrSchemaMismatch, "sourcerow builder: nil value at index %d declared as %s, want NULL", index, typ)
		}
		if salted {
			return NullRowSaltedCell(rowSalt, index), nil
		}
		return NullUnsaltedCell(), nil
	}

	data, err := encodeValue(typ, value, index)
	if err != nil {
		return Cell{}, err
	}
	if salted {
		return RowSaltedRevealCell(typ, rowSalt, index, data), nil
	}
	return UnsaltedRevealCell(typ, data), nil
}

func encodeValue(typ DataType, value interface{}, index int) ([]byte, error) {
	switch typ {
	case STRING:
		s, ok := value.(string)
		if !ok {
			return nil, sl.Errorf(sl.ErrSchemaMismatch, "sourcerow builder: index %d declared STRING, got %T", index, value)
		}
		return []byte(s), nil
	case LONG:
		var n int64
		switch v := value.(type) {
		case int64:
			n = v
		case int:
			n = int64(v)
		default:
			return nil, sl.Errorf(sl.ErrSchemaMismatch, "sourcerow builder: index %d declared LONG, got %T", index, value)
		}
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(n))
		return b[:], nil
	case DATE:
		t, ok := value.(time.Time)
		if !ok {
			return nil, sl.Errorf(sl.ErrSchemaMismatch, "sourcerow builder: index %d declared DATE, got %T", index, value)
		}
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(t.UTC().UnixMilli()))
		return b[:], nil
	case BOOL:
		bl, ok := value.(bool)
		if !ok {
			return nil, sl.Errorf(sl.ErrSchemaMismatch, "sourcerow builder: index %d declared BOOL, got %T", index, value)
		}
		if bl {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case BYTES:
		bs, ok := value.([]byte)
		if !ok {
			return nil, sl.Errorf(sl.ErrSchemaMismatch, "sourcerow builder: index %d declared BYTES, got %T", index, value)
		}
		return append([]byte(nil), bs...), nil
	case HASH:
		switch v := value.(type) {
		case sl.Hash:
			return v.Bytes(), nil
		case []byte:
			if len(v) != sl.HashSize {
				return nil, sl.Errorf(sl.ErrSchemaMismatch, "sourcerow builder: index %d declared HASH, got %d bytes", index, len(v))
			}
			return append([]byte(nil), v...), nil
		default:
			return nil, sl.Errorf(sl.ErrSchemaMismatch, "sourcerow builder: index %d declared HASH, got %T", index, value)
		}
	default:
		return nil, sl.Errorf(sl.ErrSchemaMismatch, "sourcerow builder: unsupported data type %s at index %d", typ, index)
	}
}
