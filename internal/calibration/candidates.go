package calibration

import "fmt"

// CandidateEntry pairs a candidate's id with its raw payload and its
// position in the original candidates list (1-based, matching source order).
type CandidateEntry struct {
	ID            string
	Payload       map[string]any
	OriginalOrder int
}

// IterCandidateEntries validates and flattens a calibration payload's
// "candidates" list, assigning a synthetic id to any candidate missing one
// and rejecting duplicate ids.
func IterCandidateEntries(calibrationPayload map[string]any) ([]CandidateEntry, error) {
	rawCandidates, _ := calibrationPayload["candidates"].([]any)
	if rawCandidates == nil {
		return nil, errorf("calibration payload has invalid 'candidates' list")
	}

	entries := make([]CandidateEntry, 0, len(rawCandidates))
	seen := make(map[string]bool, len(rawCandidates))
	for index, raw := range rawCandidates {
		candidate, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		id := ""
		if s, ok := candidate["id"].(string); ok {
			id = s
		}
		if id == "" {
			id = fmt.Sprintf("candidate_%d", index+1)
		}
		if seen[id] {
			return nil, errorf("calibration payload has duplicate candidate id: %s", id)
		}
		seen[id] = true
		entries = append(entries, CandidateEntry{ID: id, Payload: candidate, OriginalOrder: index + 1})
	}

	if len(entries) == 0 {
		return nil, errorf("calibration payload has no candidate entries")
	}
	return entries, nil
}
