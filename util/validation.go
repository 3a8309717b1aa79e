package util

import "fmt"

// FindDuplicate reports the first value that occurs twice in values.
// Returns (true, duplicate) if a duplicate is found, (false, 0) otherwise.
func FindDuplicate(values []uint64) (bool, uint64) {
	seen := make(map[uint64]struct{}, len(values))
	for _, v := range values {
		if _, exists := seen[v]; exists {
			return true, v
		}
		seen[v] = struct{}{}
	}

	return false, 0
}

// ValidateNoDuplicateSequenceNumbers returns an error if a sequence number
// appears more than once. Two hash chains active at the same sequence
// number would make the revelation ambiguous.
func ValidateNoDuplicateSequenceNumbers(seqs []uint64) error {
	if hasDup, dup := FindDuplicate(seqs); hasDup {
		return fmt.Errorf("duplicate sequence number detected: %d", dup)
	}

	return nil
}
