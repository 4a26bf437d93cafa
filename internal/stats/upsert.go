package stats

// Upsert replaces the first entry accepted by match with apply(existing),
// keeping its position, or appends apply(nil) when no entry matches. The
// linear scan is fine here: these collections are bounded by the distinct
// subjects or assessment types a single student has.
func Upsert[E any](entries []E, match func(*E) bool, apply func(existing *E) E) []E {
	for i := range entries {
		if match(&entries[i]) {
			entries[i] = apply(&entries[i])
			return entries
		}
	}
	return append(entries, apply(nil))
}
