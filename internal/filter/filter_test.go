package filter

import (
	"reflect"
	"testing"

	"github.com/BerylCAtieno/transcript-redactor/internal/models"
)

func testPolicy() models.RedactionPolicy {
	return models.RedactionPolicy{
		EntityTypes: []models.EntityType{models.EntityPerson, models.EntityLocation},
		Floors: map[models.EntityType]float64{
			models.EntityPerson:   0.85,
			models.EntityLocation: 0.60,
		},
	}
}

func TestApply_ConfidenceFloors(t *testing.T) {
	text := "Ann and Bob met in Rome today."
	detections := []models.Detection{
		{EntityType: models.EntityPerson, Start: 0, End: 3, Score: 0.5},
		{EntityType: models.EntityPerson, Start: 8, End: 11, Score: 0.9},
		{EntityType: models.EntityLocation, Start: 19, End: 23, Score: 0.65},
	}

	got := Apply(detections, text, testPolicy())
	want := []models.Detection{detections[1], detections[2]}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Apply() = %+v, want %+v", got, want)
	}
}

func TestApply_ExclusionList(t *testing.T) {
	text := "I live in the United States."
	policy := testPolicy()
	policy.Exclusions = models.NewExclusionSet("the united states")
	detections := []models.Detection{
		{EntityType: models.EntityLocation, Start: 10, End: 27, Score: 0.9},
	}

	if got := Apply(detections, text, policy); len(got) != 0 {
		t.Errorf("expected excluded detection to be dropped, got %+v", got)
	}
}

func TestApply_ExclusionIgnoresCaseAndWhitespace(t *testing.T) {
	text := "Flew to  USA  last week."
	policy := testPolicy()
	policy.Exclusions = models.NewExclusionSet("usa")
	detections := []models.Detection{
		{EntityType: models.EntityLocation, Start: 8, End: 13, Score: 0.9},
	}

	if got := Apply(detections, text, policy); len(got) != 0 {
		t.Errorf("expected %q to match exclusion, got %+v", text[8:13], got)
	}
}

func TestApply_DefaultFloor(t *testing.T) {
	text := "mail me at a@b.io"
	policy := testPolicy()
	policy.EntityTypes = append(policy.EntityTypes, models.EntityEmail)
	policy.DefaultFloor = 0.7

	detections := []models.Detection{
		{EntityType: models.EntityEmail, Start: 11, End: 17, Score: 0.69},
		{EntityType: models.EntityEmail, Start: 11, End: 17, Score: 0.7},
	}
	got := Apply(detections, text, policy)
	if len(got) != 1 || got[0].Score != 0.7 {
		t.Errorf("Apply() = %+v, want only the 0.7 detection", got)
	}
}

func TestApply_EmptyInputs(t *testing.T) {
	text := "Bob"
	d := []models.Detection{{EntityType: models.EntityPerson, Start: 0, End: 3, Score: 0.99}}

	if got := Apply(nil, text, testPolicy()); got == nil || len(got) != 0 {
		t.Errorf("nil detections should give empty non-nil slice, got %#v", got)
	}
	if got := Apply(d, text, models.RedactionPolicy{}); len(got) != 0 {
		t.Errorf("empty entity set should give empty result, got %+v", got)
	}
}

func TestApply_DropsInvalidUnselectedAndUnscored(t *testing.T) {
	text := "Bob lives here"
	detections := []models.Detection{
		{EntityType: models.EntityPerson, Start: 0, End: 99, Score: 0.99},
		{EntityType: models.EntityPerson, Start: 3, End: 3, Score: 0.99},
		{EntityType: models.EntityEmail, Start: 0, End: 3, Score: 0.99},
		{EntityType: models.EntityPerson, Start: 0, End: 3, Score: models.Unscored},
	}

	kept, stats := Explain(detections, text, testPolicy())
	if len(kept) != 0 {
		t.Fatalf("expected everything dropped, got %+v", kept)
	}
	want := Stats{Input: 4, Invalid: 2, Unselected: 1, BelowFloor: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

func TestApply_Idempotent(t *testing.T) {
	text := "Dr. Jane Roe called Paris from the USA on Monday."
	policy := testPolicy()
	policy.Exclusions = models.NewExclusionSet("usa")
	detections := []models.Detection{
		{EntityType: models.EntityPerson, Start: 4, End: 12, Score: 0.91},
		{EntityType: models.EntityLocation, Start: 20, End: 25, Score: 0.55},
		{EntityType: models.EntityLocation, Start: 35, End: 38, Score: 0.95},
		{EntityType: models.EntityPerson, Start: 0, End: 12, Score: 0.86},
	}

	once := Apply(detections, text, policy)
	twice := Apply(once, text, policy)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("filter is not idempotent: %+v vs %+v", once, twice)
	}
	if len(once) != 2 {
		t.Errorf("expected 2 survivors, got %+v", once)
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	text := "Bob"
	detections := []models.Detection{
		{EntityType: models.EntityPerson, Start: 0, End: 3, Score: 0.1},
		{EntityType: models.EntityPerson, Start: 0, End: 3, Score: 0.9},
	}
	before := append([]models.Detection(nil), detections...)

	Apply(detections, text, testPolicy())
	if !reflect.DeepEqual(before, detections) {
		t.Errorf("input slice was modified: %+v", detections)
	}
}
