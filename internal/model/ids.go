package model

// EnsureUniqueIDs returns an error naming the first duplicate found among
// ids, labeling it with label in the error message (e.g. "tower", "enemy").
func EnsureUniqueIDs(ids []string, label string) error {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return errorf("duplicate %s id: %s", label, id)
		}
		seen[id] = true
	}
	return nil
}
