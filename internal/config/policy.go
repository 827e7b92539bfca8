package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/BerylCAtieno/transcript-redactor/internal/models"
)

// PresetFile is the YAML document named by POLICY_FILE.
type PresetFile struct {
	Presets []PresetConfig `yaml:"presets"`
}

type PresetConfig struct {
	Name         string             `yaml:"name"`
	Description  string             `yaml:"description"`
	Replacement  string             `yaml:"replacement"`
	DefaultFloor *float64           `yaml:"default_floor"`
	Language     string             `yaml:"language"`
	Entities     []string           `yaml:"entities"`
	Floors       map[string]float64 `yaml:"floors"`
	Replacements map[string]string  `yaml:"replacements"`
	Exclusions   []string           `yaml:"exclusions"`
}

// LoadPresets reads and validates a preset file.
func LoadPresets(path string) ([]models.PolicyPreset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}
	return ParsePresets(data)
}

func ParsePresets(data []byte) ([]models.PolicyPreset, error) {
	var file PresetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing policy file: %w", err)
	}

	seen := make(map[string]bool, len(file.Presets))
	presets := make([]models.PolicyPreset, 0, len(file.Presets))
	for i, pc := range file.Presets {
		preset, err := pc.toPreset()
		if err != nil {
			return nil, fmt.Errorf("preset %d: %w", i, err)
		}
		if seen[preset.Name] {
			return nil, fmt.Errorf("preset %q defined twice", preset.Name)
		}
		seen[preset.Name] = true
		presets = append(presets, preset)
	}
	return presets, nil
}

func (pc PresetConfig) toPreset() (models.PolicyPreset, error) {
	name := strings.TrimSpace(pc.Name)
	if name == "" {
		return models.PolicyPreset{}, fmt.Errorf("name is required")
	}

	preset := models.PolicyPreset{
		Name:         name,
		Description:  pc.Description,
		Replacement:  pc.Replacement,
		DefaultFloor: models.DefaultScoreFloor,
		Language:     pc.Language,
		Exclusions:   pc.Exclusions,
	}
	if preset.Replacement == "" {
		preset.Replacement = models.DefaultReplacement
	}
	if pc.DefaultFloor != nil {
		if !validScore(*pc.DefaultFloor) {
			return preset, fmt.Errorf("%s: default_floor %v out of range", name, *pc.DefaultFloor)
		}
		preset.DefaultFloor = *pc.DefaultFloor
	}

	selected := make(map[models.EntityType]bool, len(pc.Entities))
	for _, raw := range pc.Entities {
		et := models.ParseEntityType(raw)
		if et == "" {
			return preset, fmt.Errorf("%s: empty entity type", name)
		}
		if selected[et] {
			continue
		}
		selected[et] = true

		entity := models.PresetEntity{EntityType: et}
		if floor, ok := lookup(pc.Floors, et); ok {
			if !validScore(floor) {
				return preset, fmt.Errorf("%s: floor for %s out of range", name, et)
			}
			entity.MinScore = &floor
		}
		if label, ok := lookup(pc.Replacements, et); ok {
			entity.Replacement = label
		}
		preset.Entities = append(preset.Entities, entity)
	}

	for key := range pc.Floors {
		if !selected[models.ParseEntityType(key)] {
			return preset, fmt.Errorf("%s: floor given for unselected entity %q", name, key)
		}
	}

	return preset, nil
}

func lookup[V any](m map[string]V, et models.EntityType) (V, bool) {
	for k, v := range m {
		if models.ParseEntityType(k) == et {
			return v, true
		}
	}
	var zero V
	return zero, false
}

func validScore(v float64) bool {
	return v >= 0 && v <= 1
}
