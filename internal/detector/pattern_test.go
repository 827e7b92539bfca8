package detector

import (
	"context"
	"regexp"
	"testing"

	"github.com/BerylCAtieno/transcript-redactor/internal/models"
)

var allPatternTypes = []models.EntityType{
	models.EntityEmail, models.EntityPhone, models.EntityUSSSN, models.EntityCreditCard,
	models.EntityIPAddress, models.EntityURL, models.EntityIBAN, models.EntityDateTime,
}

func TestPatternDetector_Analyze(t *testing.T) {
	det := NewPatternDetector()
	ctx := context.Background()

	tests := []struct {
		name       string
		text       string
		wantType   models.EntityType
		wantValues []string
	}{
		{"email", "Contact us at support@example.com for help", models.EntityEmail, []string{"support@example.com"}},
		{"phone", "Call us at 555-123-4567", models.EntityPhone, []string{"555-123-4567"}},
		{"phone parentheses", "Phone: (555) 123-4567", models.EntityPhone, []string{"(555) 123-4567"}},
		{"ssn", "SSN: 123-45-6789", models.EntityUSSSN, []string{"123-45-6789"}},
		{"invalid ssn area", "SSN: 666-12-3456", models.EntityUSSSN, nil},
		{"credit card", "Card: 4111 1111 1111 1111 ok", models.EntityCreditCard, []string{"4111 1111 1111 1111"}},
		{"bad luhn", "Card: 4111 1111 1111 1112 ok", models.EntityCreditCard, nil},
		{"ip", "from 192.168.1.20 today", models.EntityIPAddress, []string{"192.168.1.20"}},
		{"url", "see https://example.com/a?b=c.", models.EntityURL, []string{"https://example.com/a?b=c"}},
		{"iban", "IBAN DE89 3704 0044 0532 0130 00 thanks", models.EntityIBAN, []string{"DE89 3704 0044 0532 0130 00"}},
		{"bad iban", "IBAN DE00 3704 0044 0532 0130 00 thanks", models.EntityIBAN, nil},
		{"date", "Met on March 3rd, 2024 at noon", models.EntityDateTime, []string{"March 3rd, 2024"}},
		{"repeated digits", "ref 111-111-1112", models.EntityPhone, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detections, err := det.Analyze(ctx, Request{Text: tt.text, EntityTypes: allPatternTypes})
			if err != nil {
				t.Fatalf("Analyze returned error: %v", err)
			}

			var values []string
			for _, d := range detections {
				if d.EntityType == tt.wantType {
					values = append(values, tt.text[d.Start:d.End])
				}
			}
			if len(values) != len(tt.wantValues) {
				t.Fatalf("got %q, want %q", values, tt.wantValues)
			}
			for i := range values {
				if values[i] != tt.wantValues[i] {
					t.Errorf("value %d = %q, want %q", i, values[i], tt.wantValues[i])
				}
			}
		})
	}
}

func TestPatternDetector_RespectsRequest(t *testing.T) {
	det := NewPatternDetector()
	text := "mail a@b.io or call 555-123-4567"

	detections, err := det.Analyze(context.Background(), Request{
		Text:        text,
		EntityTypes: []models.EntityType{models.EntityEmail},
	})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if len(detections) != 1 || detections[0].EntityType != models.EntityEmail {
		t.Errorf("detections = %+v", detections)
	}

	detections, _ = det.Analyze(context.Background(), Request{
		Text:           text,
		EntityTypes:    allPatternTypes,
		ScoreThreshold: 0.99,
	})
	if len(detections) != 0 {
		t.Errorf("threshold should suppress all patterns, got %+v", detections)
	}
}

func TestPatternDetector_AddPattern(t *testing.T) {
	det := NewPatternDetector()
	det.AddPattern(&EntityPattern{
		Regex:      regexpMust(`\bEMP-[0-9]{5}\b`),
		EntityType: "EMPLOYEE_ID",
		Confidence: 0.9,
	})

	detections, err := det.Analyze(context.Background(), Request{
		Text:        "badge EMP-12345",
		EntityTypes: []models.EntityType{"EMPLOYEE_ID"},
	})
	if err != nil || len(detections) != 1 || detections[0].Start != 6 {
		t.Errorf("detections = %+v, err = %v", detections, err)
	}
}

func regexpMust(expr string) *regexp.Regexp {
	return regexp.MustCompile(expr)
}
