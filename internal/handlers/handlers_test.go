package handlers

import (
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/BerylCAtieno/transcript-redactor/internal/models"
)

func TestParseList(t *testing.T) {
	got := parseList([]string{"usa, united states", "acme\nglobex", "  ", "initech"})
	want := []string{"usa", "united states", "acme", "globex", "initech"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseList = %v, want %v", got, want)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		query   string
		table   bool
		want    string
		wantErr bool
	}{
		{"", false, FormatJSON, false},
		{"format=TXT", false, FormatTXT, false},
		{"format=annotations", true, FormatAnnotations, false},
		{"format=table", true, FormatTable, false},
		{"format=table", false, "", true},
		{"format=txt", true, "", true},
		{"format=xml", false, "", true},
	}

	for _, tt := range tests {
		r := httptest.NewRequest("POST", "/?"+tt.query, nil)
		got, err := parseFormat(r, tt.table)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseFormat(%q, %v) error = %v", tt.query, tt.table, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseFormat(%q, %v) = %q, want %q", tt.query, tt.table, got, tt.want)
		}
	}
}

func TestParseOverrides(t *testing.T) {
	form := url.Values{
		"preset":          {"strict"},
		"entities":        {"person, gpe", "EMAIL_ADDRESS"},
		"exclusions":      {"usa"},
		"score_threshold": {"0.5"},
	}
	r := httptest.NewRequest("POST", "/", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if err := r.ParseForm(); err != nil {
		t.Fatal(err)
	}

	o, err := parseOverrides(r)
	if err != nil {
		t.Fatalf("parseOverrides returned error: %v", err)
	}
	wantTypes := []models.EntityType{models.EntityPerson, models.EntityGPE, models.EntityEmail}
	if !reflect.DeepEqual(o.EntityTypes, wantTypes) {
		t.Errorf("EntityTypes = %v", o.EntityTypes)
	}
	if o.Preset != "strict" || o.ScoreThreshold == nil || *o.ScoreThreshold != 0.5 {
		t.Errorf("unexpected overrides %+v", o)
	}

	r = httptest.NewRequest("POST", "/", strings.NewReader(""))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ParseForm()
	o, _ = parseOverrides(r)
	if o.EntityTypes != nil {
		t.Error("absent entities field must keep the preset selection")
	}
}

func TestReadUpload_RejectsOversizedRequest(t *testing.T) {
	body := strings.Repeat("x", formOverhead+2048)
	r := httptest.NewRequest("POST", "/", strings.NewReader(body))
	r.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")

	_, err := readUpload(httptest.NewRecorder(), r, 1024)
	if err == nil {
		t.Fatal("expected an error for an oversized request")
	}
	if err.Error() != "File size exceeds 1.0 KiB limit" {
		t.Errorf("error = %q", err.Error())
	}
}
