package repository

import (
	"reflect"
	"testing"
)

func TestMapCandidateRow(t *testing.T) {
	row := map[string]any{
		"recommendedUserUid":  "user_c",
		"recommendedUserName": "C",
		"skillsTheyOffer":     []any{"Guitar", "Drums"},
		"skillsTheyWant":      []any{"Piano"},
		"score":               int64(40),
	}

	c := mapCandidateRow(row)
	if c.UID != "user_c" || c.Name != "C" {
		t.Fatalf("unexpected identity %+v", c)
	}
	if !reflect.DeepEqual(c.SkillsOffered, []string{"Guitar", "Drums"}) {
		t.Fatalf("unexpected offered %v", c.SkillsOffered)
	}
	if !reflect.DeepEqual(c.SkillsWanted, []string{"Piano"}) {
		t.Fatalf("unexpected wanted %v", c.SkillsWanted)
	}
	if c.Score != 40 {
		t.Fatalf("unexpected score %v", c.Score)
	}
}

func TestMapCandidateRow_FloatScoreAndMissingFields(t *testing.T) {
	row := map[string]any{
		"recommendedUserUid": "user_a",
		"score":              43.5,
	}

	c := mapCandidateRow(row)
	if c.Score != 43.5 {
		t.Fatalf("unexpected score %v", c.Score)
	}
	if c.Name != "" {
		t.Fatalf("missing name must map to empty string")
	}
	if len(c.SkillsOffered) != 0 || len(c.SkillsWanted) != 0 {
		t.Fatalf("missing skill lists must map to empty slices")
	}
	if c.SkillsOffered == nil || c.SkillsWanted == nil {
		t.Fatalf("skill lists must be non-nil for JSON encoding")
	}
}

func TestMapStatisticsRow(t *testing.T) {
	row := map[string]any{
		"userCount":    int64(5),
		"skillCount":   int64(12),
		"ownsCount":    int64(7),
		"desiresCount": int64(3),
		"ratesCount":   int64(2),
		"swappedCount": int64(4),
	}

	stats := mapStatisticsRow(row)
	if stats.Users != 5 || stats.Skills != 12 {
		t.Fatalf("unexpected node counts %+v", stats)
	}
	rel := stats.Relationships
	if rel.Owns != 7 || rel.Desires != 3 || rel.Rates != 2 || rel.Swapped != 4 {
		t.Fatalf("unexpected edge counts %+v", rel)
	}
	if rel.Total != 16 {
		t.Fatalf("total must sum all edge counts, got %d", rel.Total)
	}
}

func TestMapStatisticsRow_EmptyGraph(t *testing.T) {
	stats := mapStatisticsRow(map[string]any{})
	if stats.Users != 0 || stats.Relationships.Total != 0 {
		t.Fatalf("empty row must map to zero stats, got %+v", stats)
	}
}
