package nugget

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	sl "github.com/crums-io/skipledger.go"
	"github.com/crums-io/skipledger.go/kvtable"
	"github.com/crums-io/skipledger.go/ledger"
	"github.com/crums-io/skipledger.go/row"
)

// buildSourceLedger builds a 4-row skip-ledger whose input hashes are the
// hashes of typed, unsalted source rows (one STRING cell each), and
// returns the ledger plus the source rows in row-number order.
func buildSourceLedger(t *testing.T) (*ledger.SkipLedger, []*row.SourceRow) {
	t.Helper()
	b := row.NewSourceRowBuilder(row.NoSalt, nil)
	rows := make([]*row.SourceRow, 4)
	hashes := make([]sl.Hash, 4)
	for i := 0; i < 4; i++ {
		r, err := b.Build(uint64(i+1), []row.DataType{row.STRING}, []interface{}{"row-value"})
		require.NoError(t, err)
		rows[i] = r
		hashes[i] = r.Hash()
	}
	l, err := ledger.New(kvtable.NewMemory())
	require.NoError(t, err)
	_, err = l.AppendRows(hashes)
	require.NoError(t, err)
	return l, rows
}

func TestNuggetBuildAndSourceRowRoundTrip(t *testing.T) {
	l, rows := buildSourceLedger(t)
	// Source rows must be full rows of the nugget's path; the state path
	// [1, 2, 4] holds row 3 only by reference, so the seed path includes it.
	seedPath, err := l.GetPath(1, 3, 4)
	require.NoError(t, err)

	id := LedgerId{Id: 1, Type: Log, Alias: "test-log"}
	n, err := New(id, seedPath)
	require.NoError(t, err)
	require.NoError(t, n.SetSaltScheme(row.NoSalt))

	for _, r := range rows {
		inserted, err := n.AddSourceRow(r)
		require.NoError(t, err)
		require.True(t, inserted)
	}
	// duplicate insert
	inserted, err := n.AddSourceRow(rows[0])
	require.NoError(t, err)
	require.False(t, inserted)

	mp, err := n.Build(false)
	require.NoError(t, err)
	require.True(t, mp.HasAnchor())

	var buf bytes.Buffer
	require.NoError(t, n.Write(&buf))
	loaded, err := Read(&buf)
	require.NoError(t, err)
	require.Equal(t, id, loaded.Id)
	require.True(t, loaded.MultiPath().HasAnchor())
	require.Len(t, loaded.rows, 4)
	for i, r := range loaded.rows {
		require.Equal(t, rows[i].Hash(), r.Hash())
	}
}

func TestNuggetRejectsHashMismatch(t *testing.T) {
	l, rows := buildSourceLedger(t)
	statePath, err := l.StatePath()
	require.NoError(t, err)

	id := LedgerId{Id: 2, Type: Log, Alias: "test-log-2"}
	n, err := New(id, statePath)
	require.NoError(t, err)
	require.NoError(t, n.SetSaltScheme(row.NoSalt))

	b := row.NewSourceRowBuilder(row.NoSalt, nil)
	tampered, err := b.Build(rows[0].RowNo(), []row.DataType{row.STRING}, []interface{}{"different-value"})
	require.NoError(t, err)

	_, err = n.AddSourceRow(tampered)
	require.ErrorIs(t, err, sl.ErrHashConflict)
}

func TestNuggetAddForeignRef(t *testing.T) {
	l, _ := buildSourceLedger(t)
	statePath, err := l.StatePath()
	require.NoError(t, err)

	id := LedgerId{Id: 3, Type: Log, Alias: "refs"}
	n, err := New(id, statePath)
	require.NoError(t, err)

	ok, err := n.AddForeignRef(Reference{LocalNo: 4, ForeignId: 9, ForeignNo: 28})
	require.NoError(t, err)
	require.True(t, ok)

	dup, err := n.AddForeignRef(Reference{LocalNo: 4, ForeignId: 9, ForeignNo: 28})
	require.NoError(t, err)
	require.False(t, dup)

	_, err = n.AddForeignRef(Reference{LocalNo: 999, ForeignId: 9, ForeignNo: 1})
	require.ErrorIs(t, err, sl.ErrBadRowNumber)
}
