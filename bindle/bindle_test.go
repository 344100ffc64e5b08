package bindle

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	sl "github.com/crums-io/skipledger.go"
	"github.com/crums-io/skipledger.go/kvtable"
	"github.com/crums-io/skipledger.go/ledger"
	"github.com/crums-io/skipledger.go/notary"
	"github.com/crums-io/skipledger.go/nugget"
	"github.com/crums-io/skipledger.go/path"
	"github.com/crums-io/skipledger.go/rowbag"
	"github.com/crums-io/skipledger.go/skiprow"
)

func buildLedger(t *testing.T, rows int) *ledger.SkipLedger {
	t.Helper()
	l, err := ledger.New(kvtable.NewMemory())
	require.NoError(t, err)
	hashes := make([]sl.Hash, rows)
	for i := range hashes {
		hashes[i] = sl.Sum([]byte{byte(i + 1), byte((i + 1) >> 8)})
	}
	_, err = l.AppendRows(hashes)
	require.NoError(t, err)
	return l
}

// TestCrossLedgerReference reproduces spec §8 scenario 6: log A (rows
// 1..4), log B (rows 28..33), a reference from A's row 1 to B's row 28
// succeeds, a duplicate reference is rejected as a no-op, and a reference
// to a foreign row not present in B's nugget fails at Build.
func TestCrossLedgerReference(t *testing.T) {
	logA := buildLedger(t, 4)
	logB := buildLedger(t, 40)

	bd := New()
	pathA, err := logA.StatePath()
	require.NoError(t, err)
	idA, err := bd.DeclareLog("log-a", pathA, "", "")
	require.NoError(t, err)

	pathB, err := logB.GetPath(28, 33)
	require.NoError(t, err)
	idB, err := bd.DeclareLog("log-b", pathB, "", "")
	require.NoError(t, err)

	nA, _ := bd.Nugget(idA.Id)
	_, err = nA.Build(false)
	require.NoError(t, err)
	nB, _ := bd.Nugget(idB.Id)
	_, err = nB.Build(true) // partial: lo=28, no state-anchor
	require.NoError(t, err)

	ok, err := bd.AddReference(idA.Id, idB.Id, nugget.Reference{LocalNo: 1, ForeignNo: 28})
	require.NoError(t, err)
	require.True(t, ok)

	dup, err := bd.AddReference(idA.Id, idB.Id, nugget.Reference{LocalNo: 1, ForeignNo: 28})
	require.NoError(t, err)
	require.False(t, dup)

	require.NoError(t, bd.Build())

	// row 999 is well outside B's [28,33] nugget range.
	_, err = bd.AddReference(idA.Id, idB.Id, nugget.Reference{LocalNo: 4, ForeignNo: 999})
	require.NoError(t, err) // local validation only succeeds
	err = bd.Build()
	require.ErrorIs(t, err, sl.ErrHashConflict)
}

func TestBindleAliasUniqueness(t *testing.T) {
	logA := buildLedger(t, 4)
	pathA, err := logA.StatePath()
	require.NoError(t, err)

	bd := New()
	_, err = bd.DeclareLog("dup", pathA, "", "")
	require.NoError(t, err)
	_, err = bd.DeclareLog("dup", pathA, "", "")
	require.ErrorIs(t, err, sl.ErrSchemaMismatch)
}

func TestBindleRoundTrip(t *testing.T) {
	logA := buildLedger(t, 8)
	pathA, err := logA.StatePath()
	require.NoError(t, err)

	bd := New()
	id, err := bd.DeclareLog("solo", pathA, "", "")
	require.NoError(t, err)
	n, _ := bd.Nugget(id.Id)
	_, err = n.Build(false)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, bd.Write(&buf))
	loaded, err := Read(&buf)
	require.NoError(t, err)

	ln, ok := loaded.Nugget(id.Id)
	require.True(t, ok)
	require.Equal(t, id, ln.Id)
	require.True(t, ln.MultiPath().HasAnchor())
	require.Equal(t, skiprow.RowNo(8), ln.MultiPath().Hi())
}

// blockChainRows builds a full, explicit row list 1..n (every row, not
// just a skip-stitched subset), so the resulting path.Path carries an
// input-hash for every row -- matching notary package's own chain()
// helper, which this is grounded on.
func blockChainRows(n int) []rowbag.Row {
	hashes := make([]sl.Hash, n+1)
	hashes[0] = sl.Sentinel
	rows := make([]rowbag.Row, 0, n)
	for rn := 1; rn <= n; rn++ {
		input := sl.Sum([]byte{byte(rn), byte(rn >> 8)})
		sc := skiprow.SkipCount(skiprow.RowNo(rn))
		prev := make([]sl.Hash, sc)
		for k := 0; k < sc; k++ {
			prev[k] = hashes[rn-(1<<k)]
		}
		parts := append([]sl.Hash{input}, prev...)
		hashes[rn] = sl.SumHashes(parts...)
		rows = append(rows, rowbag.Row{RowNo: skiprow.RowNo(rn), InputHash: input, PrevHashes: prev})
	}
	return rows
}

// TestTimechainNotarizationBuild reproduces spec §3/§4.8/§4.9's combined
// invariant: a log's notarized row must both hash-match its own nugget's
// multi-path and have its crumtrail land in its declared timechain's
// block-proof. Exercises DeclareTimechain + AddNotarizedRow + Bindle.Build
// together, including a round trip through Write/Read.
func TestTimechainNotarizationBuild(t *testing.T) {
	logA := buildLedger(t, 4)
	pathA, err := logA.StatePath()
	require.NoError(t, err)

	bd := New()
	idA, err := bd.DeclareLog("log-a", pathA, "", "")
	require.NoError(t, err)
	nA, _ := bd.Nugget(idA.Id)

	mpA, err := nA.Build(false)
	require.NoError(t, err)
	rh4, ok := mpA.RowHash(4)
	require.True(t, ok)

	const utc = int64(1_700_000_000_000)
	crum := notary.Crum{RowHash: rh4, UtcMillis: utc}

	const blockCount = 1000
	const binDuration = int64(10_000)
	inception := utc - binDuration*500
	params := notary.ChainParams{BinDuration: binDuration, InceptionUtc: inception}
	targetBlock := params.BlockNo(utc)
	require.True(t, targetBlock >= 1 && targetBlock <= blockCount)

	leaves := make([]sl.Hash, 16)
	for i := range leaves {
		leaves[i] = sl.Sum([]byte{byte(i)})
	}
	const leafIdx = 3
	leaves[leafIdx] = crum.LeafHash()
	proof := notary.NewCargoProof(leaves, leafIdx)
	root := proof.RootHash(crum.LeafHash())

	// Make the cargo root the target block's input, then re-link every row's
	// skip-pointers to the resulting row hashes.
	blockRows := blockChainRows(blockCount)
	blockHashes := map[skiprow.RowNo]sl.Hash{0: sl.Sentinel}
	for i := range blockRows {
		r := &blockRows[i]
		if r.RowNo == targetBlock {
			r.InputHash = root
		}
		for k := range r.PrevHashes {
			r.PrevHashes[k] = blockHashes[r.RowNo-(1<<k)]
		}
		blockHashes[r.RowNo] = r.Hash()
	}
	blockPath, err := path.New(blockRows)
	require.NoError(t, err)
	bp := notary.NewBlockProof(params, blockPath)

	idTC, err := bd.DeclareTimechain("tc-1", bp, "", "")
	require.NoError(t, err)
	nTC, _ := bd.Nugget(idTC.Id)
	_, err = nTC.Build(false)
	require.NoError(t, err)

	nr := notary.NotarizedRow{RowNo: 4, Proof: proof}
	inserted, err := nA.AddNotarizedRow(uint64(idTC.Id), crum, nr)
	require.NoError(t, err)
	require.True(t, inserted)

	require.NoError(t, bd.Build())

	var buf bytes.Buffer
	require.NoError(t, bd.Write(&buf))
	loaded, err := Read(&buf)
	require.NoError(t, err)
	require.NoError(t, loaded.Build())

	// tamper: a notarized row whose crum matches the nugget's multi-path
	// row-hash (so AddNotarizedRow's own check passes) but whose CargoProof
	// roots to a value the declared timechain's block-proof never recorded.
	// Build must still catch this -- the check AddNotarizedRow cannot
	// perform because it has no BlockProof to consult.
	logB := buildLedger(t, 4)
	pathB, err := logB.StatePath()
	require.NoError(t, err)

	bd2 := New()
	idB, err := bd2.DeclareLog("log-b", pathB, "", "")
	require.NoError(t, err)
	nB, _ := bd2.Nugget(idB.Id)
	mpB, err := nB.Build(false)
	require.NoError(t, err)
	rhB4, ok := mpB.RowHash(4)
	require.True(t, ok)

	idTC2, err := bd2.DeclareTimechain("tc-2", bp, "", "")
	require.NoError(t, err)
	nTC2, _ := bd2.Nugget(idTC2.Id)
	_, err = nTC2.Build(false)
	require.NoError(t, err)

	crumB := notary.Crum{RowHash: rhB4, UtcMillis: utc}
	wrongLeaves := make([]sl.Hash, 16)
	for i := range wrongLeaves {
		wrongLeaves[i] = sl.Sum([]byte{byte(i), 0xff})
	}
	wrongLeaves[leafIdx] = crumB.LeafHash()
	wrongProof := notary.NewCargoProof(wrongLeaves, leafIdx) // roots to a value bp never recorded
	nrB := notary.NotarizedRow{RowNo: 4, Proof: wrongProof}
	inserted, err = nB.AddNotarizedRow(uint64(idTC2.Id), crumB, nrB)
	require.NoError(t, err)
	require.True(t, inserted)

	err = bd2.Build()
	require.ErrorIs(t, err, sl.ErrHashConflict)
}
