package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BerylCAtieno/transcript-redactor/internal/detector"
	"github.com/BerylCAtieno/transcript-redactor/internal/models"
	"github.com/BerylCAtieno/transcript-redactor/internal/utils"
)

func (s *redactionService) ListPresets(ctx context.Context) ([]models.PolicyPreset, error) {
	presets, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list presets", "error", err)
		return nil, utils.NewInternalError("Failed to list policy presets")
	}
	return presets, nil
}

func (s *redactionService) GetPreset(ctx context.Context, name string) (*models.PolicyPreset, error) {
	preset, err := s.repo.GetByName(ctx, name)
	if err != nil {
		s.logger.Error("Failed to get preset", "error", err, "preset", name)
		return nil, utils.NewInternalError("Failed to retrieve policy preset")
	}
	if preset == nil {
		return nil, utils.NewNotFoundError(fmt.Sprintf("Policy preset %q not found", name))
	}
	return preset, nil
}

// ResolvePolicy loads the requested preset and layers the overrides on it.
// An empty entity selection is a PolicyError: the caller must not run the
// detector.
func (s *redactionService) ResolvePolicy(ctx context.Context, overrides models.PolicyOverrides) (models.RedactionPolicy, error) {
	name := overrides.Preset
	if name == "" {
		name = s.opts.DefaultPreset
	}

	preset, err := s.repo.GetByName(ctx, name)
	if err != nil {
		s.logger.Error("Failed to load preset", "error", err, "preset", name)
		return models.RedactionPolicy{}, utils.NewInternalError("Failed to load policy preset")
	}
	if preset == nil {
		return models.RedactionPolicy{}, utils.NewInputError(fmt.Sprintf("Unknown policy preset %q", name), nil)
	}

	policy := overrides.Apply(preset.Policy())
	if policy.Language == "" {
		policy.Language = s.opts.Language
	}

	if t := overrides.ScoreThreshold; t != nil && (*t < 0 || *t > 1) {
		return policy, utils.NewInputError("score_threshold must be between 0 and 1", nil)
	}
	if strings.Contains(policy.Replacement, "\n") {
		return policy, utils.NewInputError("replacement must not contain a newline", nil)
	}
	for t, label := range policy.Replacements {
		if strings.Contains(label, "\n") {
			return policy, utils.NewInputError(fmt.Sprintf("replacement for %s must not contain a newline", t), nil)
		}
	}
	if !policy.HasEntityTypes() {
		return policy, utils.NewPolicyError("No entity types selected; choose at least one entity type to redact")
	}

	return policy, nil
}

// SupportedEntities asks the detector when it can list its types and falls
// back to the built-in list otherwise.
func (s *redactionService) SupportedEntities(ctx context.Context, language string) (*models.EntitiesResponse, error) {
	if language == "" {
		language = s.opts.Language
	}

	if lister, ok := s.detector.(detector.EntityLister); ok {
		types, err := lister.SupportedEntities(ctx, language)
		if err == nil {
			return &models.EntitiesResponse{Language: language, Source: s.detector.Name(), EntityTypes: types}, nil
		}
		s.logger.Warn("Detector could not list entities, using built-in list", "error", err, "detector", s.detector.Name())
	}

	return &models.EntitiesResponse{
		Language:    language,
		Source:      "builtin",
		EntityTypes: models.KnownEntityTypes,
	}, nil
}

func (s *redactionService) Ready(ctx context.Context) error {
	checker, ok := s.detector.(detector.HealthChecker)
	if !ok {
		return nil
	}
	if err := checker.Health(ctx); err != nil {
		var unavailable *detector.UnavailableError
		if !errors.As(err, &unavailable) {
			err = &detector.UnavailableError{Backend: s.detector.Name(), Err: err}
		}
		return utils.NewDetectorUnavailableError(err)
	}
	return nil
}
