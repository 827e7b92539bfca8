package models

import (
	"math"
	"strings"
	"time"
)

const (
	DefaultReplacement   = "**REDACTED**"
	DefaultLanguage      = "en"
	DefaultScoreFloor    = 0.6
	DefaultPersonFloor   = 0.85
	DefaultLocationFloor = 0.70
)

// RedactionPolicy is built once per request and read-only afterwards.
type RedactionPolicy struct {
	Name         string
	Language     string
	Replacement  string
	Replacements map[EntityType]string
	EntityTypes  []EntityType
	Floors       map[EntityType]float64
	DefaultFloor float64
	Exclusions   map[string]struct{}
}

// DefaultPolicy mirrors the transcript setup: names and places only, with a
// stricter floor for PERSON.
func DefaultPolicy() RedactionPolicy {
	return RedactionPolicy{
		Name:        "default",
		Language:    DefaultLanguage,
		Replacement: DefaultReplacement,
		Replacements: map[EntityType]string{
			EntityPerson: "[NAME]",
			EntityGPE:    "[LOCATION]",
			EntityLOC:    "[LOCATION]",
		},
		EntityTypes: []EntityType{EntityPerson, EntityGPE, EntityLOC},
		Floors: map[EntityType]float64{
			EntityPerson: DefaultPersonFloor,
			EntityGPE:    DefaultLocationFloor,
			EntityLOC:    DefaultLocationFloor,
		},
		DefaultFloor: DefaultScoreFloor,
		Exclusions:   NewExclusionSet("usa", "u.s.", "united states", "the united states"),
	}
}

// NormalizeTerm is the comparison form of exclusion entries and matched spans.
func NormalizeTerm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func NewExclusionSet(terms ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		if n := NormalizeTerm(t); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

func (p RedactionPolicy) HasEntityTypes() bool {
	return len(p.EntityTypes) > 0
}

func (p RedactionPolicy) Selects(t EntityType) bool {
	for _, et := range p.EntityTypes {
		if et == t {
			return true
		}
	}
	return false
}

// Floor is the minimum score a detection of type t needs to survive.
func (p RedactionPolicy) Floor(t EntityType) float64 {
	if f, ok := p.Floors[t]; ok {
		return f
	}
	return p.DefaultFloor
}

// DetectorThreshold is the lowest floor among the selected types, so the
// detector never discards something the filter would keep.
func (p RedactionPolicy) DetectorThreshold() float64 {
	lowest := p.DefaultFloor
	for _, t := range p.EntityTypes {
		lowest = math.Min(lowest, p.Floor(t))
	}
	if lowest < 0 {
		return 0
	}
	return lowest
}

// Excludes reports whether the matched span is an allow-listed term.
func (p RedactionPolicy) Excludes(span string) bool {
	if len(p.Exclusions) == 0 {
		return false
	}
	_, ok := p.Exclusions[NormalizeTerm(span)]
	return ok
}

func (p RedactionPolicy) ReplacementFor(t EntityType) string {
	if r, ok := p.Replacements[t]; ok && r != "" {
		return r
	}
	if p.Replacement == "" {
		return DefaultReplacement
	}
	return p.Replacement
}

// PresetEntity selects one entity type inside a preset. A nil MinScore falls
// back to the preset's default floor.
type PresetEntity struct {
	EntityType  EntityType `json:"entity_type" db:"entity_type" yaml:"entity_type"`
	MinScore    *float64   `json:"min_score,omitempty" db:"min_score" yaml:"min_score"`
	Replacement string     `json:"replacement,omitempty" db:"replacement" yaml:"replacement"`
}

// PolicyPreset is a named, stored policy that requests start from.
type PolicyPreset struct {
	Name         string         `json:"name" db:"name"`
	Description  string         `json:"description" db:"description"`
	Replacement  string         `json:"replacement" db:"replacement"`
	DefaultFloor float64        `json:"default_floor" db:"default_floor"`
	Language     string         `json:"language" db:"language"`
	Entities     []PresetEntity `json:"entities"`
	Exclusions   []string       `json:"exclusions"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

// Policy converts a stored preset into a request policy. An empty Language
// is left for the caller to fill with the deployment default.
func (p *PolicyPreset) Policy() RedactionPolicy {
	policy := RedactionPolicy{
		Name:         p.Name,
		Language:     p.Language,
		Replacement:  p.Replacement,
		Replacements: make(map[EntityType]string),
		Floors:       make(map[EntityType]float64),
		DefaultFloor: p.DefaultFloor,
		Exclusions:   NewExclusionSet(p.Exclusions...),
	}
	if policy.Replacement == "" {
		policy.Replacement = DefaultReplacement
	}
	for _, e := range p.Entities {
		policy.EntityTypes = append(policy.EntityTypes, e.EntityType)
		if e.MinScore != nil {
			policy.Floors[e.EntityType] = *e.MinScore
		}
		if e.Replacement != "" {
			policy.Replacements[e.EntityType] = e.Replacement
		}
	}
	return policy
}

// PolicyOverrides carries per-request form fields layered over a preset.
// Nil or empty fields leave the preset value untouched.
type PolicyOverrides struct {
	Preset         string
	EntityTypes    []EntityType
	Replacement    string
	Exclusions     []string
	Language       string
	ScoreThreshold *float64
}

// Apply layers the overrides onto policy and returns the result.
func (o PolicyOverrides) Apply(policy RedactionPolicy) RedactionPolicy {
	if o.EntityTypes != nil {
		policy.EntityTypes = o.EntityTypes
	}
	if o.Replacement != "" {
		policy.Replacement = o.Replacement
		policy.Replacements = nil
	}
	if len(o.Exclusions) > 0 {
		merged := make(map[string]struct{}, len(policy.Exclusions)+len(o.Exclusions))
		for k := range policy.Exclusions {
			merged[k] = struct{}{}
		}
		for k := range NewExclusionSet(o.Exclusions...) {
			merged[k] = struct{}{}
		}
		policy.Exclusions = merged
	}
	if o.Language != "" {
		policy.Language = o.Language
	}
	if o.ScoreThreshold != nil {
		policy.DefaultFloor = *o.ScoreThreshold
	}
	return policy
}
