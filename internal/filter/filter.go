// Package filter applies a RedactionPolicy to raw detector output: per-type
// confidence floors, entity-type selection and a case-insensitive exclusion
// list. It never mutates or reorders detections.
package filter

import (
	"github.com/BerylCAtieno/transcript-redactor/internal/models"
)

// Stats counts why detections were discarded.
type Stats struct {
	Input      int `json:"input"`
	Kept       int `json:"kept"`
	Invalid    int `json:"invalid"`
	Unselected int `json:"unselected"`
	BelowFloor int `json:"below_floor"`
	Excluded   int `json:"excluded"`
}

// Apply returns the detections of text that satisfy policy, in input order.
func Apply(detections []models.Detection, text string, policy models.RedactionPolicy) []models.Detection {
	kept, _ := Explain(detections, text, policy)
	return kept
}

// Explain is Apply plus a breakdown of what was dropped.
func Explain(detections []models.Detection, text string, policy models.RedactionPolicy) ([]models.Detection, Stats) {
	stats := Stats{Input: len(detections)}
	if len(detections) == 0 || !policy.HasEntityTypes() {
		stats.Unselected = len(detections)
		return []models.Detection{}, stats
	}

	kept := make([]models.Detection, 0, len(detections))
	for _, d := range detections {
		switch {
		case !d.InBounds(len(text)):
			stats.Invalid++
		case !policy.Selects(d.EntityType):
			stats.Unselected++
		// written as a negation so unscored (NaN) detections never pass
		case !(d.Score >= policy.Floor(d.EntityType)):
			stats.BelowFloor++
		case policy.Excludes(text[d.Start:d.End]):
			stats.Excluded++
		default:
			kept = append(kept, d)
		}
	}
	stats.Kept = len(kept)
	return kept, stats
}
