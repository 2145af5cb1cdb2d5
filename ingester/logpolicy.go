package ingester

// LogInterval returns how many blocks apart progress lines are logged, given how far behind the
// frontier the follower is.
func LogInterval(remaining int64) int64 {
	switch {
	case remaining >= 1000:
		return 1000
	case remaining >= 10:
		return 10
	default:
		return 3
	}
}

// ShouldLogProgress reports whether a progress line is due before fetching next, and the last
// block of the range that line announces. A line is due when the distance to the frontier is a
// multiple of the interval, or when less than one interval is left, so the approach to the
// frontier is always logged.
func ShouldLogProgress(next int64, frontier int64) (bool, int64) {
	remaining := frontier - next
	interval := LogInterval(remaining)
	if remaining%interval != 0 && remaining >= interval {
		return false, 0
	}
	return true, min(next+interval-1, frontier)
}
