package kvtable

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	sl "github.com/crums-io/skipledger.go"
	"github.com/crums-io/skipledger.go/ledger"
	"github.com/crums-io/skipledger.go/skiprow"
)

func exerciseTable(t *testing.T, table ledger.SkipTable) {
	t.Helper()
	l, err := ledger.New(table)
	require.NoError(t, err)

	hashes := make([]sl.Hash, 20)
	for i := range hashes {
		hashes[i] = sl.Sum([]byte{byte(i + 1)})
	}
	size, err := l.AppendRows(hashes)
	require.NoError(t, err)
	require.Equal(t, skiprow.RowNo(20), size)

	rh1, err := l.RowHash(1)
	require.NoError(t, err)
	require.Equal(t, sl.SumHashes(hashes[0], sl.Sentinel), rh1)

	sp, err := l.StatePath()
	require.NoError(t, err)
	// The state path answers its full rows and the rows they point to
	// directly, not every row up to size.
	for rn := range sp.Bag().Coverage() {
		if rn == 0 {
			continue
		}
		h, ok := sp.RowHash(rn)
		require.True(t, ok)
		got, err := l.RowHash(rn)
		require.NoError(t, err)
		require.Equal(t, got, h)
	}

	require.NoError(t, l.TrimSize(12))
	newSize, err := l.Size()
	require.NoError(t, err)
	require.Equal(t, skiprow.RowNo(12), newSize)
}

func TestMemoryTable(t *testing.T) {
	exerciseTable(t, NewMemory())
}

func TestHiveMapTable(t *testing.T) {
	exerciseTable(t, NewHiveMap())
}

func TestHiveBadgerTable(t *testing.T) {
	dir := t.TempDir()
	table, err := NewHiveBadger(filepath.Join(dir, "badger"))
	require.NoError(t, err)
	exerciseTable(t, table)
}

func TestBoltTable(t *testing.T) {
	dir := t.TempDir()
	table, err := OpenBolt(filepath.Join(dir, "ledger.bolt"))
	require.NoError(t, err)
	defer table.Close()
	exerciseTable(t, table)
}

func TestMemoryReadRowOutOfRange(t *testing.T) {
	m := NewMemory()
	_, err := m.ReadRow(1)
	require.ErrorIs(t, err, sl.ErrBadRowNumber)
}

func TestBoltPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.bolt")
	table, err := OpenBolt(path)
	require.NoError(t, err)

	l, err := ledger.New(table)
	require.NoError(t, err)
	hashes := []sl.Hash{sl.Sum([]byte("a")), sl.Sum([]byte("b")), sl.Sum([]byte("c"))}
	_, err = l.AppendRows(hashes)
	require.NoError(t, err)
	require.NoError(t, table.Close())

	reopened, err := OpenBolt(path)
	require.NoError(t, err)
	defer reopened.Close()
	size, err := reopened.Size()
	require.NoError(t, err)
	require.Equal(t, skiprow.RowNo(3), size)

	_, err = os.Stat(path)
	require.NoError(t, err)
}
