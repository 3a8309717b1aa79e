package util

// SaturatingSub returns a - b, or 0 if b > a.
func SaturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}

	return a - b
}
