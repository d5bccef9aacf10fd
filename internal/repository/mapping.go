package repository

// Record values come back from the driver as int64, float64 or []any
// depending on what the query produced, so coercion lives here.

func mapCandidateRow(row map[string]any) Candidate {
	return Candidate{
		UID:           asString(row["recommendedUserUid"]),
		Name:          asString(row["recommendedUserName"]),
		SkillsOffered: asStringSlice(row["skillsTheyOffer"]),
		SkillsWanted:  asStringSlice(row["skillsTheyWant"]),
		Score:         asFloat(row["score"]),
	}
}

func mapStatisticsRow(row map[string]any) GraphStatistics {
	rel := RelationshipCounts{
		Owns:    asInt(row["ownsCount"]),
		Desires: asInt(row["desiresCount"]),
		Rates:   asInt(row["ratesCount"]),
		Swapped: asInt(row["swappedCount"]),
	}
	rel.Total = rel.Owns + rel.Desires + rel.Rates + rel.Swapped
	return GraphStatistics{
		Users:         asInt(row["userCount"]),
		Skills:        asInt(row["skillCount"]),
		Relationships: rel,
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}

func asInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}
