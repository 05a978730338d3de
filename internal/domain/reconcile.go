package domain

import "strconv"

// DefaultLegacyIndexThreshold bounds the positional-key heuristic: an answer
// map whose keys are all integers below it is treated as keyed by legacy
// zero-based positions rather than question IDs.
const DefaultLegacyIndexThreshold = 100

// ReconcileAnswers maps a raw answer map onto canonical question IDs. For the
// question at position i with identifier id, the "id" key wins over the
// positional "i" key when both are present. Unknown raw keys are ignored so
// client and server question sets may drift without corrupting saved state.
func ReconcileAnswers(key []KeyEntry, raw map[string]string) map[int64]string {
	reconciled := make(map[int64]string, len(raw))
	for i, entry := range key {
		if label, ok := raw[strconv.FormatInt(entry.QuestionID, 10)]; ok {
			reconciled[entry.QuestionID] = label
			continue
		}
		if label, ok := raw[strconv.Itoa(i)]; ok {
			reconciled[entry.QuestionID] = label
		}
	}
	return reconciled
}

// CanonicalAnswerMap reconciles raw answers and re-keys them by question ID,
// the only form writes use going forward. Re-applying it to an already
// canonical map is a no-op, which keeps the batch migration restartable.
func CanonicalAnswerMap(key []KeyEntry, raw map[string]string) map[string]string {
	canonical := make(map[string]string, len(raw))
	for id, label := range ReconcileAnswers(key, raw) {
		canonical[strconv.FormatInt(id, 10)] = label
	}
	return canonical
}

// IsLegacyAnswerMap reports whether every key parses as a zero-based position
// below threshold. The heuristic only holds while real question IDs stay at
// or above the threshold; empty maps are never legacy.
func IsLegacyAnswerMap(raw map[string]string, threshold int) bool {
	if len(raw) == 0 {
		return false
	}
	for k := range raw {
		n, err := strconv.Atoi(k)
		if err != nil || n < 0 || n >= threshold {
			return false
		}
	}
	return true
}
