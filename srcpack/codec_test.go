package srcpack

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	sl "github.com/crums-io/skipledger.go"
	"github.com/crums-io/skipledger.go/row"
)

func TestSourcePackRoundTripUnsalted(t *testing.T) {
	rows := []*row.SourceRow{}
	for rn := uint64(1); rn <= 3; rn++ {
		r, err := row.NewSourceRow(rn, []row.Cell{
			row.UnsaltedRevealCell(row.STRING, []byte("hello")),
			row.UnsaltedRevealCell(row.LONG, []byte{0, 0, 0, 0, 0, 0, 0, byte(rn)}),
		})
		require.NoError(t, err)
		rows = append(rows, r)
	}
	pk, err := New(row.NoSalt, rows)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, pk.Write(&buf))

	back, err := Read(&buf)
	require.NoError(t, err)
	require.Len(t, back.Rows, 3)
	for i, r := range back.Rows {
		require.Equal(t, rows[i].Hash(), r.Hash())
		require.Equal(t, rows[i].RowNo(), r.RowNo())
	}
}

func TestSourcePackRoundTripSalted(t *testing.T) {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i * 7)
	}
	ts, err := row.NewTableSalt(seed)
	require.NoError(t, err)
	handle, err := ts.Acquire()
	require.NoError(t, err)
	defer handle.Release()

	scheme := row.NewSaltScheme([]int{0}, true)
	b := row.NewSourceRowBuilder(scheme, handle)

	var rows []*row.SourceRow
	for rn := uint64(1); rn <= 4; rn++ {
		r, err := b.Build(rn, []row.DataType{row.STRING, row.BOOL}, []interface{}{"secret", rn%2 == 0})
		require.NoError(t, err)
		rows = append(rows, r)
	}
	pk, err := New(scheme, rows)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, pk.Write(&buf))

	back, err := Read(&buf)
	require.NoError(t, err)
	for i, r := range back.Rows {
		require.Equal(t, rows[i].Hash(), r.Hash())
	}
}

func TestSourcePackRoundTripWithRedaction(t *testing.T) {
	r1, err := row.NewSourceRow(1, []row.Cell{
		row.UnsaltedRevealCell(row.STRING, []byte("visible")),
		row.UnsaltedRevealCell(row.BYTES, []byte{9, 9, 9}),
	})
	require.NoError(t, err)
	before := r1.Hash()
	redacted, err := r1.Redact(1)
	require.NoError(t, err)
	require.Equal(t, before, redacted.Hash())

	pk, err := New(row.NoSalt, []*row.SourceRow{redacted})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, pk.Write(&buf))
	back, err := Read(&buf)
	require.NoError(t, err)
	require.Equal(t, before, back.Rows[0].Hash())
	require.True(t, back.Rows[0].Cell(1).IsRedacted())
}

func TestSourcePackRejectsNonAscending(t *testing.T) {
	r1, _ := row.NewSourceRow(2, []row.Cell{row.UnsaltedRevealCell(row.BOOL, []byte{1})})
	r2, _ := row.NewSourceRow(1, []row.Cell{row.UnsaltedRevealCell(row.BOOL, []byte{0})})
	_, err := New(row.NoSalt, []*row.SourceRow{r1, r2})
	require.Error(t, err)
}

func TestSourcePackRejectsSchemeMismatch(t *testing.T) {
	r1, _ := row.NewSourceRow(1, []row.Cell{row.UnsaltedRevealCell(row.BOOL, []byte{1})})
	_, err := New(row.SaltAll, []*row.SourceRow{r1})
	require.Error(t, err)
	require.ErrorIs(t, err, sl.ErrSchemaMismatch)
}

// TestSchemaFlagBitPattern pins SchemaFlag bits 1-2 to spec §4.5's literal
// table: 00 NO_SALT, 10 positive explicit indices, 01 negative explicit
// indices, 11 SALT_ALL.
func TestSchemaFlagBitPattern(t *testing.T) {
	writeFlag := func(scheme row.SaltScheme, rows []*row.SourceRow) uint64 {
		pk, err := New(scheme, rows)
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, pk.Write(&buf))
		flag, err := sl.ReadUint64(&buf)
		require.NoError(t, err)
		return flag & schemeMask
	}

	noSaltRow, err := row.NewSourceRow(1, []row.Cell{row.UnsaltedRevealCell(row.BOOL, []byte{1})})
	require.NoError(t, err)
	require.Equal(t, uint64(0<<1), writeFlag(row.NoSalt, []*row.SourceRow{noSaltRow}))

	seed := make([]byte, 32)
	ts, err := row.NewTableSalt(seed)
	require.NoError(t, err)
	handle, err := ts.Acquire()
	require.NoError(t, err)
	defer handle.Release()

	posScheme := row.NewSaltScheme([]int{0}, true)
	posBuilder := row.NewSourceRowBuilder(posScheme, handle)
	posRow, err := posBuilder.Build(1, []row.DataType{row.BOOL}, []interface{}{true})
	require.NoError(t, err)
	require.Equal(t, uint64(2<<1), writeFlag(posScheme, []*row.SourceRow{posRow}))

	negScheme := row.NewSaltScheme([]int{0}, false)
	negBuilder := row.NewSourceRowBuilder(negScheme, handle)
	negRow, err := negBuilder.Build(1, []row.DataType{row.BOOL, row.BOOL}, []interface{}{true, false})
	require.NoError(t, err)
	require.Equal(t, uint64(1<<1), writeFlag(negScheme, []*row.SourceRow{negRow}))

	saltAllBuilder := row.NewSourceRowBuilder(row.SaltAll, handle)
	saltAllRow, err := saltAllBuilder.Build(1, []row.DataType{row.BOOL}, []interface{}{true})
	require.NoError(t, err)
	require.Equal(t, uint64(3<<1), writeFlag(row.SaltAll, []*row.SourceRow{saltAllRow}))
}
