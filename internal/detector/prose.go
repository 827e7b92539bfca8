package detector

import (
	"context"
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"

	"github.com/BerylCAtieno/transcript-redactor/internal/models"
	"github.com/BerylCAtieno/transcript-redactor/internal/utils"
)

// ProseDetector runs prose's English NER model in-process. The model gives
// no per-entity score, so every entity carries the configured confidence.
type ProseDetector struct {
	confidence float64
	logger     *utils.Logger
}

func NewProseDetector(confidence float64, logger *utils.Logger) *ProseDetector {
	if confidence <= 0 || confidence > 1 {
		confidence = 0.85
	}
	return &ProseDetector{confidence: confidence, logger: logger}
}

func (p *ProseDetector) Name() string {
	return BackendProse
}

func (p *ProseDetector) Analyze(ctx context.Context, req Request) ([]models.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, &UnavailableError{Backend: BackendProse, Err: err}
	}
	if req.Language != "" && !strings.EqualFold(req.Language, models.DefaultLanguage) {
		return nil, &UnavailableError{Backend: BackendProse, Err: fmt.Errorf("language %q is not supported", req.Language)}
	}
	if p.confidence < req.ScoreThreshold {
		return []models.Detection{}, nil
	}

	doc, err := prose.NewDocument(req.Text)
	if err != nil {
		return nil, &UnavailableError{Backend: BackendProse, Err: err}
	}

	var detections []models.Detection
	cursor := 0
	for _, ent := range doc.Entities() {
		entityType, ok := p.mapLabel(ent.Label, req)
		if !ok {
			continue
		}
		// prose reports entity text without offsets; entities come in
		// document order, so search forward from the previous match.
		idx := strings.Index(req.Text[cursor:], ent.Text)
		if idx < 0 {
			p.logger.Debug("prose entity not found in text", "label", ent.Label, "cursor", cursor)
			continue
		}
		start := cursor + idx
		end := start + len(ent.Text)
		cursor = end

		detections = append(detections, models.Detection{
			EntityType: entityType,
			Start:      start,
			End:        end,
			Score:      p.confidence,
		})
	}
	return detections, nil
}

func (p *ProseDetector) SupportedEntities(_ context.Context, _ string) ([]models.EntityType, error) {
	return []models.EntityType{models.EntityPerson, models.EntityGPE, models.EntityLocation, models.EntityLOC, models.EntityOrganization}, nil
}

// mapLabel translates a prose label into the requested vocabulary. GPE is
// reported under whichever location-family type the request selected.
func (p *ProseDetector) mapLabel(label string, req Request) (models.EntityType, bool) {
	switch strings.ToUpper(label) {
	case "PERSON":
		return models.EntityPerson, req.wants(models.EntityPerson)
	case "GPE", "LOC", "LOCATION":
		for _, t := range []models.EntityType{models.EntityGPE, models.EntityLocation, models.EntityLOC} {
			if req.wants(t) {
				return t, true
			}
		}
	case "ORG", "ORGANIZATION":
		return models.EntityOrganization, req.wants(models.EntityOrganization)
	}
	return "", false
}
