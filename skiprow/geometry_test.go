package skiprow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSkipCount(t *testing.T) {
	cases := map[RowNo]int{
		1: 1, 2: 2, 3: 1, 4: 3, 5: 1, 6: 2, 7: 1, 8: 4, 16: 5,
	}
	for rn, want := range cases {
		require.Equal(t, want, SkipCount(rn), "rn=%d", rn)
	}
}

func TestSkipCountPanicsBelowOne(t *testing.T) {
	require.Panics(t, func() { SkipCount(0) })
}

func TestReferencedRow(t *testing.T) {
	require.Equal(t, RowNo(0), ReferencedRow(1, 0))
	require.Equal(t, RowNo(0), ReferencedRow(4, 2))
	require.Equal(t, RowNo(3), ReferencedRow(4, 0))
	require.Equal(t, RowNo(2), ReferencedRow(4, 1))
}

func TestSkipPathNumbersStatePath4(t *testing.T) {
	// Spec §8 scenario 3: state-path of a 4-row ledger is [4, 2, 1].
	path := SkipPathNumbers(1, 4)
	require.Equal(t, []RowNo{4, 2, 1}, path)
}

func TestSkipPathNumbersLinked(t *testing.T) {
	for _, hi := range []RowNo{1, 2, 3, 4, 5, 8, 16, 17, 100, 1023, 1024} {
		path := SkipPathNumbers(0, hi)
		require.Equal(t, hi, path[0])
		for i := 1; i < len(path); i++ {
			require.True(t, IsLinked(path[i], path[i-1]), "path[%d]=%d not linked from path[%d]=%d", i, path[i], i-1, path[i-1])
		}
		require.Equal(t, RowNo(0), path[len(path)-1])
	}
}

func TestSkipPathNumbersSameRow(t *testing.T) {
	require.Equal(t, []RowNo{7}, SkipPathNumbers(7, 7))
}

func TestStitch(t *testing.T) {
	out := Stitch([]RowNo{1, 4})
	require.Equal(t, []RowNo{1, 2, 4}, out)
}

func TestStitchDedup(t *testing.T) {
	out := Stitch([]RowNo{2, 4, 8})
	// every consecutive pair already linked directly (each a power of 2
	// stepping by itself), so the union should just be the targets.
	require.Equal(t, []RowNo{2, 4, 8}, out)
}

func TestCoverageIncludesSelf(t *testing.T) {
	cov := Coverage([]RowNo{4})
	require.True(t, cov[4])
	require.True(t, cov[2])
	require.True(t, cov[3]) // referenced at level 0
	require.False(t, cov[0])
}

func TestLinkLevel(t *testing.T) {
	lvl, ok := LinkLevel(0, 4)
	require.True(t, ok)
	require.Equal(t, 2, lvl)

	_, ok = LinkLevel(1, 4)
	require.False(t, ok)
}
