// Package redactor substitutes detected spans in a text. It always reads
// from the original text and never from a partly redacted copy, so offsets
// stay valid whatever order the detections arrive in.
package redactor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BerylCAtieno/transcript-redactor/internal/models"
)

// OverlapPolicy decides what happens when two detections share bytes.
type OverlapPolicy string

const (
	// RejectOverlaps fails the request with a MalformedDetectionError.
	RejectOverlaps OverlapPolicy = "reject"
	// KeepFirst keeps the earliest span, longest first on ties, and drops
	// any span that overlaps an already kept one.
	KeepFirst OverlapPolicy = "keep_first"
)

func ParseOverlapPolicy(s string) (OverlapPolicy, error) {
	switch OverlapPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case RejectOverlaps, "":
		return RejectOverlaps, nil
	case KeepFirst:
		return KeepFirst, nil
	}
	return "", fmt.Errorf("unknown overlap policy %q", s)
}

// MalformedDetectionError reports a detection that cannot be applied safely.
type MalformedDetectionError struct {
	Detection models.Detection
	Other     *models.Detection
	Reason    string
}

func (e *MalformedDetectionError) Error() string {
	if e.Other != nil {
		return fmt.Sprintf("malformed detection %s[%d:%d]: %s %s[%d:%d]",
			e.Detection.EntityType, e.Detection.Start, e.Detection.End, e.Reason,
			e.Other.EntityType, e.Other.Start, e.Other.End)
	}
	return fmt.Sprintf("malformed detection %s[%d:%d]: %s",
		e.Detection.EntityType, e.Detection.Start, e.Detection.End, e.Reason)
}

// Options controls substitution. Labels override Replacement per type.
type Options struct {
	Replacement string
	Labels      map[models.EntityType]string
	Overlap     OverlapPolicy
}

func (o Options) label(t models.EntityType) string {
	if l, ok := o.Labels[t]; ok && l != "" {
		return l
	}
	if o.Replacement == "" {
		return models.DefaultReplacement
	}
	return o.Replacement
}

// OptionsFor builds Options from a request policy.
func OptionsFor(policy models.RedactionPolicy, overlap OverlapPolicy) Options {
	return Options{
		Replacement: policy.ReplacementFor(""),
		Labels:      policy.Replacements,
		Overlap:     overlap,
	}
}

// Redact replaces every detection span in text with replacement. Overlapping
// detections are rejected.
func Redact(text string, detections []models.Detection, replacement string) (string, error) {
	return RedactWithOptions(text, detections, Options{Replacement: replacement, Overlap: RejectOverlaps})
}

func RedactWithOptions(text string, detections []models.Detection, opts Options) (string, error) {
	if len(detections) == 0 {
		return text, nil
	}
	if err := Validate(text, detections); err != nil {
		return "", err
	}
	ordered, err := Resolve(detections, opts.Overlap)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(len(text))
	cursor := 0
	for _, d := range ordered {
		b.WriteString(text[cursor:d.Start])
		b.WriteString(opts.label(d.EntityType))
		cursor = d.End
	}
	b.WriteString(text[cursor:])
	return b.String(), nil
}

// Validate checks that every span lies inside text and on rune boundaries.
func Validate(text string, detections []models.Detection) error {
	for _, d := range detections {
		if !d.InBounds(len(text)) {
			return &MalformedDetectionError{Detection: d, Reason: fmt.Sprintf("out of bounds for text of length %d", len(text))}
		}
		if !isRuneBoundary(text, d.Start) || !isRuneBoundary(text, d.End) {
			return &MalformedDetectionError{Detection: d, Reason: "splits a multi-byte character"}
		}
	}
	return nil
}

// Resolve returns a copy of detections sorted by start, longest first on
// ties, with overlaps handled according to policy.
func Resolve(detections []models.Detection, policy OverlapPolicy) ([]models.Detection, error) {
	ordered := make([]models.Detection, len(detections))
	copy(ordered, detections)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Start != ordered[j].Start {
			return ordered[i].Start < ordered[j].Start
		}
		return ordered[i].Len() > ordered[j].Len()
	})

	out := ordered[:0]
	for _, d := range ordered {
		if len(out) > 0 {
			last := out[len(out)-1]
			if d.Overlaps(last) {
				if policy == KeepFirst {
					continue
				}
				return nil, &MalformedDetectionError{Detection: d, Other: &last, Reason: "overlaps"}
			}
		}
		out = append(out, d)
	}
	return out, nil
}

func isRuneBoundary(s string, i int) bool {
	if i == 0 || i == len(s) {
		return true
	}
	return s[i]&0xC0 != 0x80
}
