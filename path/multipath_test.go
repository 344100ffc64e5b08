package path

import (
	"testing"

	"github.com/stretchr/testify/require"

	sl "github.com/crums-io/skipledger.go"
	"github.com/crums-io/skipledger.go/rowbag"
	"github.com/crums-io/skipledger.go/skiprow"
)

func newPath(t *testing.T, full map[skiprow.RowNo]rowbag.Row, lo, hi skiprow.RowNo) *Path {
	t.Helper()
	nums := skiprow.SkipPathNumbers(lo, hi)
	p, err := New(rowsFor(full, nums))
	require.NoError(t, err)
	return p
}

// TestMultiPathIslandRejection reproduces spec §8 scenario 4: a builder
// seeded with path(5,11) accepts path(10,14) and path(16,32) -- both connect
// to the accumulating spine -- but rejects the disconnected single-row
// path(27) as an island. Adding the state-path (1..5) reconnects the spine to
// row 1, yet path(27) remains rejected because 27 is still outside the
// spine's coverage.
func TestMultiPathIslandRejection(t *testing.T) {
	full := chain(15000)

	seed := newPath(t, full, 5, 11)
	b, err := NewBuilder(seed)
	require.NoError(t, err)

	common, err := b.AddPath(newPath(t, full, 10, 14))
	require.NoError(t, err)
	require.Equal(t, skiprow.RowNo(11), common)

	_, err = b.AddPath(newPath(t, full, 16, 32))
	require.NoError(t, err)

	island := newPath(t, full, 27, 27)
	_, err = b.AddPath(island)
	require.ErrorIs(t, err, sl.ErrIslandRejected)

	statePath := newPath(t, full, 1, 5)
	_, err = b.AddPath(statePath)
	require.NoError(t, err)

	_, err = b.AddPath(island)
	require.ErrorIs(t, err, sl.ErrIslandRejected)

	mp, err := b.Build(false)
	require.NoError(t, err)
	require.True(t, mp.HasAnchor())
	require.Equal(t, skiprow.RowNo(32), mp.Hi())
}

func TestMultiPathBuildRequiresAnchorUnlessPartial(t *testing.T) {
	full := chain(100)
	seed := newPath(t, full, 50, 60)
	b, err := NewBuilder(seed)
	require.NoError(t, err)

	_, err = b.Build(false)
	require.ErrorIs(t, err, sl.ErrBadSourcePack)

	mp, err := b.Build(true)
	require.NoError(t, err)
	require.False(t, mp.HasAnchor())
}

func TestMultiPathHashConflict(t *testing.T) {
	full := chain(20)
	seed := newPath(t, full, 1, 8)
	b, err := NewBuilder(seed)
	require.NoError(t, err)

	other := newPath(t, full, 4, 12)
	// tamper with a full row's input hash, and re-link the rows above it, so
	// it disagrees with the seed at the shared row number without breaking
	// internal path linkage.
	bagRows := []rowbag.Row{}
	relinked := map[skiprow.RowNo]sl.Hash{}
	for _, rn := range other.RowNumbers() {
		r, _ := other.Bag().FullRow(rn)
		r.PrevHashes = append([]sl.Hash(nil), r.PrevHashes...)
		if rn == 4 {
			r.InputHash = sl.Sum([]byte("tampered"))
		}
		for k := range r.PrevHashes {
			if h, ok := relinked[rn-(1<<k)]; ok {
				r.PrevHashes[k] = h
			}
		}
		relinked[rn] = r.Hash()
		bagRows = append(bagRows, r)
	}
	tamperedPath, err := New(bagRows)
	require.NoError(t, err)

	_, err = b.AddPath(tamperedPath)
	require.ErrorIs(t, err, sl.ErrHashConflict)
}
