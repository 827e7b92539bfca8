package detector

import (
	"context"
	"math/big"
	"regexp"
	"strings"

	"github.com/BerylCAtieno/transcript-redactor/internal/models"
)

// EntityPattern is one regex recognizer with a base confidence.
type EntityPattern struct {
	Regex      *regexp.Regexp
	EntityType models.EntityType
	Confidence float64
	Validators []func(string) bool
}

// PatternDetector recognizes structured PII with regular expressions. It
// ignores the request language.
type PatternDetector struct {
	patterns []*EntityPattern
}

func NewPatternDetector() *PatternDetector {
	return &PatternDetector{patterns: defaultPatterns()}
}

func defaultPatterns() []*EntityPattern {
	return []*EntityPattern{
		{
			Regex:      regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
			EntityType: models.EntityEmail,
			Confidence: 0.95,
		},
		{
			Regex:      regexp.MustCompile(`(?:\+?1[-.\s]?)?\(?\b[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}\b`),
			EntityType: models.EntityPhone,
			Confidence: 0.75,
			Validators: []func(string) bool{validatePhone},
		},
		{
			Regex:      regexp.MustCompile(`\b[0-9]{3}[-\s]?[0-9]{2}[-\s]?[0-9]{4}\b`),
			EntityType: models.EntityUSSSN,
			Confidence: 0.85,
			Validators: []func(string) bool{validateSSN},
		},
		{
			Regex:      regexp.MustCompile(`\b(?:[0-9][ -]?){12,18}[0-9]\b`),
			EntityType: models.EntityCreditCard,
			Confidence: 0.9,
			Validators: []func(string) bool{validateLuhn},
		},
		{
			Regex:      regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`),
			EntityType: models.EntityIPAddress,
			Confidence: 0.9,
		},
		{
			Regex:      regexp.MustCompile(`\b(?:https?://|www\.)[^\s<>"']*[^\s<>"'.,;:!?)\]]`),
			EntityType: models.EntityURL,
			Confidence: 0.85,
		},
		{
			Regex:      regexp.MustCompile(`\b[A-Z]{2}[0-9]{2}(?: ?[A-Z0-9]{4}){2,7}(?: ?[A-Z0-9]{1,4})?\b`),
			EntityType: models.EntityIBAN,
			Confidence: 0.9,
			Validators: []func(string) bool{validateIBAN},
		},
		{
			Regex: regexp.MustCompile(`\b(?:[0-9]{1,2}[-/][0-9]{1,2}[-/][0-9]{2,4}|[0-9]{4}-[0-9]{2}-[0-9]{2}|` +
				`(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)[a-z]*\.?\s+[0-9]{1,2}(?:st|nd|rd|th)?,?\s+[0-9]{4})\b`),
			EntityType: models.EntityDateTime,
			Confidence: 0.6,
		},
	}
}

func (p *PatternDetector) Name() string {
	return BackendPattern
}

func (p *PatternDetector) Analyze(ctx context.Context, req Request) ([]models.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, &UnavailableError{Backend: BackendPattern, Err: err}
	}

	// Each recognizer's matches never overlap each other, so Merge only has
	// to settle conflicts between recognizers (a URL inside an email).
	groups := make([][]models.Detection, 0, len(p.patterns))
	for _, pattern := range p.patterns {
		if !req.wants(pattern.EntityType) || pattern.Confidence < req.ScoreThreshold {
			continue
		}
		var detections []models.Detection
		for _, match := range pattern.Regex.FindAllStringIndex(req.Text, -1) {
			if !validAll(req.Text[match[0]:match[1]], pattern.Validators) {
				continue
			}
			detections = append(detections, models.Detection{
				EntityType: pattern.EntityType,
				Start:      match[0],
				End:        match[1],
				Score:      pattern.Confidence,
			})
		}
		groups = append(groups, detections)
	}
	return Merge(groups), nil
}

// AddPattern registers an extra recognizer.
func (p *PatternDetector) AddPattern(pattern *EntityPattern) {
	p.patterns = append(p.patterns, pattern)
}

func (p *PatternDetector) SupportedEntities(_ context.Context, _ string) ([]models.EntityType, error) {
	seen := make(map[models.EntityType]bool)
	var types []models.EntityType
	for _, pattern := range p.patterns {
		if !seen[pattern.EntityType] {
			seen[pattern.EntityType] = true
			types = append(types, pattern.EntityType)
		}
	}
	return types, nil
}

func validAll(value string, validators []func(string) bool) bool {
	for _, v := range validators {
		if !v(value) {
			return false
		}
	}
	return true
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, c := range s {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

func validateSSN(ssn string) bool {
	clean := digitsOnly(ssn)
	if len(clean) != 9 {
		return false
	}
	area, group, serial := clean[:3], clean[3:5], clean[5:]
	if area == "000" || area == "666" || area[0] == '9' {
		return false
	}
	return group != "00" && serial != "0000"
}

func validateLuhn(number string) bool {
	clean := digitsOnly(number)
	if len(clean) < 13 || len(clean) > 19 {
		return false
	}

	sum := 0
	alternate := false
	for i := len(clean) - 1; i >= 0; i-- {
		n := int(clean[i] - '0')
		if alternate {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		alternate = !alternate
	}
	return sum%10 == 0
}

// validateIBAN applies the ISO 13616 mod-97 check.
func validateIBAN(iban string) bool {
	clean := strings.ReplaceAll(strings.ToUpper(iban), " ", "")
	if len(clean) < 15 || len(clean) > 34 {
		return false
	}

	rearranged := clean[4:] + clean[:4]
	var numeric strings.Builder
	for _, c := range rearranged {
		switch {
		case c >= '0' && c <= '9':
			numeric.WriteRune(c)
		case c >= 'A' && c <= 'Z':
			numeric.WriteString(big.NewInt(int64(c - 'A' + 10)).String())
		default:
			return false
		}
	}

	n, ok := new(big.Int).SetString(numeric.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(n, big.NewInt(97)).Int64() == 1
}

func validatePhone(phone string) bool {
	digits := digitsOnly(phone)
	if len(digits) < 10 || len(digits) > 11 {
		return false
	}

	// Mostly one repeated digit is filler, not a phone number.
	freq := make(map[rune]int)
	maxFreq := 0
	for _, c := range digits {
		freq[c]++
		if freq[c] > maxFreq {
			maxFreq = freq[c]
		}
	}
	return float64(maxFreq)/float64(len(digits)) <= 0.7
}
