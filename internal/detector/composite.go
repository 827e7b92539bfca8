package detector

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/BerylCAtieno/transcript-redactor/internal/models"
	"github.com/BerylCAtieno/transcript-redactor/internal/utils"
)

// Composite runs several backends one after another and merges their output.
// If any backend fails the whole call fails; partial results are never used.
type Composite struct {
	backends []Detector
	logger   *utils.Logger
}

func NewComposite(backends []Detector, logger *utils.Logger) *Composite {
	return &Composite{backends: backends, logger: logger}
}

func (c *Composite) Name() string {
	return "composite"
}

func (c *Composite) Analyze(ctx context.Context, req Request) ([]models.Detection, error) {
	groups := make([][]models.Detection, 0, len(c.backends))
	for _, b := range c.backends {
		detections, err := b.Analyze(ctx, req)
		if err != nil {
			var unavailable *UnavailableError
			if errors.As(err, &unavailable) {
				return nil, err
			}
			return nil, &UnavailableError{Backend: b.Name(), Err: err}
		}
		c.logger.Debug("Backend analysis complete", "backend", b.Name(), "detections", len(detections))
		groups = append(groups, detections)
	}
	return Merge(groups), nil
}

// Health checks every backend that has a probe.
func (c *Composite) Health(ctx context.Context) error {
	for _, b := range c.backends {
		if hc, ok := b.(HealthChecker); ok {
			if err := hc.Health(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// SupportedEntities is the union over backends, in first-seen order.
func (c *Composite) SupportedEntities(ctx context.Context, language string) ([]models.EntityType, error) {
	seen := make(map[models.EntityType]bool)
	var types []models.EntityType
	for _, b := range c.backends {
		lister, ok := b.(EntityLister)
		if !ok {
			continue
		}
		got, err := lister.SupportedEntities(ctx, language)
		if err != nil {
			return nil, err
		}
		for _, t := range got {
			if !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
		}
	}
	return types, nil
}

// Merge combines per-backend results. Exact duplicates (same type and span)
// collapse into one with the best score. A span that overlaps a span from
// another backend competes with it: the higher score wins, then the longer
// span, then the earlier backend. Overlaps within one backend's output are
// kept so the redactor can judge them. The result is sorted by start.
func Merge(groups [][]models.Detection) []models.Detection {
	type candidate struct {
		models.Detection
		group int
	}
	type key struct {
		t          models.EntityType
		start, end int
	}

	index := make(map[key]int)
	var candidates []candidate
	for g, detections := range groups {
		for _, d := range detections {
			k := key{d.EntityType, d.Start, d.End}
			if i, ok := index[k]; ok {
				if betterScore(d.Score, candidates[i].Score) {
					candidates[i].Score = d.Score
				}
				continue
			}
			index[k] = len(candidates)
			candidates = append(candidates, candidate{Detection: d, group: g})
		}
	}

	ranked := make([]candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if betterScore(a.Score, b.Score) != betterScore(b.Score, a.Score) {
			return betterScore(a.Score, b.Score)
		}
		if a.Len() != b.Len() {
			return a.Len() > b.Len()
		}
		if a.group != b.group {
			return a.group < b.group
		}
		return a.Start < b.Start
	})

	var kept []candidate
	for _, c := range ranked {
		beaten := false
		for _, k := range kept {
			if k.group != c.group && k.Overlaps(c.Detection) {
				beaten = true
				break
			}
		}
		if !beaten {
			kept = append(kept, c)
		}
	}

	result := make([]models.Detection, 0, len(kept))
	for _, c := range kept {
		result = append(result, c.Detection)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Start != result[j].Start {
			return result[i].Start < result[j].Start
		}
		return result[i].Len() > result[j].Len()
	})
	return result
}

// betterScore reports whether a beats b; any score beats a missing one.
func betterScore(a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	if math.IsNaN(b) {
		return true
	}
	return a > b
}
