package ingester_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/voi-tools/proposer-follower/ingester"
)

func TestLogInterval(t *testing.T) {
	tests := []struct {
		remaining int64
		expected  int64
	}{
		{remaining: 100_000, expected: 1000},
		{remaining: 1000, expected: 1000},
		{remaining: 999, expected: 10},
		{remaining: 45, expected: 10},
		{remaining: 10, expected: 10},
		{remaining: 9, expected: 3},
		{remaining: 0, expected: 3},
	}
	for _, tt := range tests {
		require.Equal(t, tt.expected, ingester.LogInterval(tt.remaining), "remaining %d", tt.remaining)
	}
}

// loggedDistances walks next from frontier-start up to frontier and returns
// the distances to the frontier at which a line was logged
func loggedDistances(start int64, stop int64) []int64 {
	const frontier = 1_000_000
	var logged []int64
	for next := frontier - start; next <= frontier-stop; next++ {
		if ok, _ := ingester.ShouldLogProgress(next, frontier); ok {
			logged = append(logged, frontier-next)
		}
	}
	return logged
}

func TestShouldLogProgressFarBehind(t *testing.T) {
	// every 1000 blocks while at least 1000 behind
	require.Equal(t, []int64{2000, 1000}, loggedDistances(2500, 1000))
}

func TestShouldLogProgressModeratelyBehind(t *testing.T) {
	require.Equal(t, []int64{40, 30, 20, 10}, loggedDistances(45, 10))
}

func TestShouldLogProgressClose(t *testing.T) {
	// every 3 blocks, and every block on the final approach
	require.Equal(t, []int64{3, 2, 1, 0}, loggedDistances(4, 0))
	require.Equal(t, []int64{9, 6, 3, 2, 1, 0}, loggedDistances(9, 0))
}

func TestShouldLogProgressRangeEnd(t *testing.T) {
	ok, to := ingester.ShouldLogProgress(1, 2001)
	require.True(t, ok)
	require.Equal(t, int64(1000), to)

	ok, to = ingester.ShouldLogProgress(11, 51)
	require.True(t, ok)
	require.Equal(t, int64(20), to)

	// the range never goes past the frontier
	ok, to = ingester.ShouldLogProgress(99, 100)
	require.True(t, ok)
	require.Equal(t, int64(100), to)

	ok, _ = ingester.ShouldLogProgress(2, 2501)
	require.False(t, ok)
}
