package calibration

// QualityStats reports how completely a candidate resolves the combat
// field sets it was scored against, merged with its stability scoring.
type QualityStats struct {
	Valid                        bool
	RequiredFieldsTotal          int
	ResolvedRequiredCount        int
	RequiredResolutionRatio      float64
	MissingRequiredFieldNames    []string
	UnresolvedRequiredFieldNames []string
	ResolvedRequiredFieldNames   []string
	OptionalFieldsTotal          int
	ResolvedOptionalCount        int
	OptionalResolutionRatio      float64
	ResolvedOptionalFieldNames   []string
	Stability                    StabilityStats
}

// CandidateQuality inspects a candidate's field spec payload against the
// required/optional field sets, merging in its historical stability score.
// A candidate is only ever valid when every required field resolved to a
// non-placeholder address.
func CandidateQuality(fieldsPayload map[string]any, requiredFields, optionalFields []string, candidatePayload map[string]any) QualityStats {
	var missingRequired, unresolvedRequired, resolvedRequired, resolvedOptional []string

	for _, name := range requiredFields {
		rawSpec, ok := fieldsPayload[name]
		if !ok {
			missingRequired = append(missingRequired, name)
			continue
		}
		if fieldHasResolvedAddress(rawSpec) {
			resolvedRequired = append(resolvedRequired, name)
		} else {
			unresolvedRequired = append(unresolvedRequired, name)
		}
	}

	for _, name := range optionalFields {
		if fieldHasResolvedAddress(fieldsPayload[name]) {
			resolvedOptional = append(resolvedOptional, name)
		}
	}

	requiredTotal := len(requiredFields)
	optionalTotal := len(optionalFields)
	resolvedRequiredCount := len(resolvedRequired)
	resolvedOptionalCount := len(resolvedOptional)

	requiredRatio := 0.0
	if requiredTotal > 0 {
		requiredRatio = float64(resolvedRequiredCount) / float64(requiredTotal)
	}
	optionalRatio := 0.0
	if optionalTotal > 0 {
		optionalRatio = float64(resolvedOptionalCount) / float64(optionalTotal)
	}

	stability := CandidateStabilityStats(candidatePayload)

	return QualityStats{
		Valid:                        resolvedRequiredCount == requiredTotal,
		RequiredFieldsTotal:          requiredTotal,
		ResolvedRequiredCount:        resolvedRequiredCount,
		RequiredResolutionRatio:      requiredRatio,
		MissingRequiredFieldNames:    missingRequired,
		UnresolvedRequiredFieldNames: unresolvedRequired,
		ResolvedRequiredFieldNames:   resolvedRequired,
		OptionalFieldsTotal:          optionalTotal,
		ResolvedOptionalCount:        resolvedOptionalCount,
		OptionalResolutionRatio:      optionalRatio,
		ResolvedOptionalFieldNames:   resolvedOptional,
		Stability:                    stability,
	}
}
