package models

import (
	"math"
	"strings"
)

// EntityType names a class of PII reported by the detector.
type EntityType string

const (
	EntityPerson       EntityType = "PERSON"
	EntityLocation     EntityType = "LOCATION"
	EntityGPE          EntityType = "GPE"
	EntityLOC          EntityType = "LOC"
	EntityEmail        EntityType = "EMAIL_ADDRESS"
	EntityPhone        EntityType = "PHONE_NUMBER"
	EntityDateTime     EntityType = "DATE_TIME"
	EntityIPAddress    EntityType = "IP_ADDRESS"
	EntityURL          EntityType = "URL"
	EntityCreditCard   EntityType = "CREDIT_CARD"
	EntityUSSSN        EntityType = "US_SSN"
	EntityIBAN         EntityType = "IBAN_CODE"
	EntitySWIFT        EntityType = "SWIFT_CODE"
	EntityOrganization EntityType = "ORGANIZATION"
)

// KnownEntityTypes lists the types the service advertises when the detector
// cannot report its own.
var KnownEntityTypes = []EntityType{
	EntityPerson,
	EntityLocation,
	EntityGPE,
	EntityLOC,
	EntityEmail,
	EntityPhone,
	EntityDateTime,
	EntityIPAddress,
	EntityURL,
	EntityCreditCard,
	EntityUSSSN,
	EntityIBAN,
	EntitySWIFT,
	EntityOrganization,
}

// ParseEntityType normalizes user input such as " person " to PERSON.
func ParseEntityType(s string) EntityType {
	return EntityType(strings.ToUpper(strings.TrimSpace(s)))
}

// IsLocation reports whether t belongs to the location family.
func (t EntityType) IsLocation() bool {
	switch t {
	case EntityLocation, EntityGPE, EntityLOC:
		return true
	}
	return false
}

// Detection is one flagged span. Start and End are half-open byte offsets
// into the analyzed text. A NaN Score means the detector gave no score.
type Detection struct {
	EntityType EntityType `json:"entity_type"`
	Start      int        `json:"start"`
	End        int        `json:"end"`
	Score      float64    `json:"score"`
}

// Unscored is the Score of a detection that carries no confidence.
var Unscored = math.NaN()

func (d Detection) Len() int {
	return d.End - d.Start
}

func (d Detection) HasScore() bool {
	return !math.IsNaN(d.Score)
}

// InBounds reports whether the span lies inside a text of length n.
func (d Detection) InBounds(n int) bool {
	return d.Start >= 0 && d.Start < d.End && d.End <= n
}

// Overlaps reports whether d and o share at least one byte.
func (d Detection) Overlaps(o Detection) bool {
	return d.Start < o.End && o.Start < d.End
}

// Shift returns a copy of d moved by delta bytes.
func (d Detection) Shift(delta int) Detection {
	d.Start += delta
	d.End += delta
	return d
}

// DetectionRecord is the export shape of a Detection. Offsets count code
// points of the source text. Score is nil when the detector gave none, so
// JSON carries an explicit null.
type DetectionRecord struct {
	EntityType EntityType `json:"entity_type"`
	Start      int        `json:"start"`
	End        int        `json:"end"`
	Score      *float64   `json:"score"`
	RowIndex   *int       `json:"row_index,omitempty"`
}

func (d Detection) Record() DetectionRecord {
	rec := DetectionRecord{
		EntityType: d.EntityType,
		Start:      d.Start,
		End:        d.End,
	}
	if d.HasScore() {
		score := d.Score
		rec.Score = &score
	}
	return rec
}
