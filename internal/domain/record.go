package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Source identifies which extraction path produced a field value.
type Source string

const (
	SourcePattern Source = "pattern"
	SourceLLM     Source = "llm"
	SourceMerged  Source = "merged"
)

// StringField is a leaf value with extraction provenance. Confidence is a
// [0,1] reliability estimate, not a probability.
type StringField struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source,omitempty"`
}

func (f StringField) IsZero() bool { return strings.TrimSpace(f.Value) == "" }

type IntField struct {
	Value      int     `json:"value"`
	Present    bool    `json:"present"`
	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source,omitempty"`
}

// DateField carries a resolved absolute date. Resolved=false means the
// mention could not be anchored; Value may still hold a fallback date.
type DateField struct {
	Value      time.Time `json:"value"`
	Resolved   bool      `json:"resolved"`
	Confidence float64   `json:"confidence"`
	Source     Source    `json:"source,omitempty"`
}

func (f DateField) IsZero() bool { return f.Value.IsZero() }

type Demographics struct {
	Name StringField `json:"name"`
	MRN  StringField `json:"mrn"`
	Age  IntField    `json:"age"`
	Sex  StringField `json:"sex"`
}

type RecordDates struct {
	Admission      DateField   `json:"admission"`
	Discharge      DateField   `json:"discharge"`
	ProcedureDates []DateField `json:"procedure_dates,omitempty"`
}

// PathologyKind enumerates the recognized pathology categories.
type PathologyKind string

const (
	PathologyVascular      PathologyKind = "vascular"
	PathologyTumor         PathologyKind = "tumor"
	PathologyTrauma        PathologyKind = "trauma"
	PathologyDegenerative  PathologyKind = "degenerative"
	PathologyInfection     PathologyKind = "infection"
	PathologyHydrocephalus PathologyKind = "hydrocephalus"
	PathologyFunctional    PathologyKind = "functional"
	PathologyOther         PathologyKind = "other"
)

// PathologyCategory is a tagged union: a known kind, or Other carrying the
// free-text label verbatim.
type PathologyCategory struct {
	kind  PathologyKind
	other string
}

func KnownPathology(kind PathologyKind) PathologyCategory {
	return PathologyCategory{kind: kind}
}

func OtherPathology(label string) PathologyCategory {
	return PathologyCategory{kind: PathologyOther, other: strings.TrimSpace(label)}
}

func (c PathologyCategory) Kind() PathologyKind { return c.kind }

func (c PathologyCategory) String() string {
	if c.kind == PathologyOther && c.other != "" {
		return c.other
	}
	return string(c.kind)
}

func (c PathologyCategory) IsZero() bool { return c.kind == "" }

func (c PathologyCategory) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind  PathologyKind `json:"kind"`
		Other string        `json:"other,omitempty"`
	}{Kind: c.kind, Other: c.other})
}

func (c *PathologyCategory) UnmarshalJSON(data []byte) error {
	var raw struct {
		Kind  PathologyKind `json:"kind"`
		Other string        `json:"other"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.kind = raw.Kind
	c.other = raw.Other
	return nil
}

var pathologySynonyms = map[string]PathologyKind{
	"vascular": PathologyVascular, "aneurysm": PathologyVascular, "sah": PathologyVascular,
	"subarachnoid hemorrhage": PathologyVascular, "avm": PathologyVascular,
	"ich": PathologyVascular, "stroke": PathologyVascular, "hemorrhage": PathologyVascular,
	"tumor": PathologyTumor, "glioma": PathologyTumor, "glioblastoma": PathologyTumor,
	"meningioma": PathologyTumor, "metastasis": PathologyTumor, "mass": PathologyTumor,
	"trauma": PathologyTrauma, "tbi": PathologyTrauma, "sdh": PathologyTrauma,
	"subdural hematoma": PathologyTrauma, "epidural hematoma": PathologyTrauma,
	"degenerative": PathologyDegenerative, "stenosis": PathologyDegenerative,
	"herniation": PathologyDegenerative, "spondylosis": PathologyDegenerative,
	"infection": PathologyInfection, "abscess": PathologyInfection,
	"osteomyelitis": PathologyInfection, "ventriculitis": PathologyInfection,
	"hydrocephalus": PathologyHydrocephalus,
	"functional":    PathologyFunctional, "epilepsy": PathologyFunctional,
	"parkinson": PathologyFunctional,
}

// ParsePathologyCategory maps a free-text label onto a known kind, falling
// back to Other with the label preserved.
func ParsePathologyCategory(label string) PathologyCategory {
	norm := strings.ToLower(strings.TrimSpace(label))
	if norm == "" {
		return PathologyCategory{}
	}
	if kind, ok := pathologySynonyms[norm]; ok {
		return KnownPathology(kind)
	}
	for syn, kind := range pathologySynonyms {
		if len(syn) >= 4 && strings.Contains(norm, syn) {
			return KnownPathology(kind)
		}
	}
	return OtherPathology(label)
}

type Pathology struct {
	Category   PathologyCategory `json:"category"`
	Subtype    StringField       `json:"subtype"`
	Location   StringField       `json:"location"`
	Confidence float64           `json:"confidence"`
	Source     Source            `json:"source,omitempty"`
}

type Procedure struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Date         time.Time `json:"date"`
	DateResolved bool      `json:"date_resolved"`
	Confidence   float64   `json:"confidence"`
	Source       Source    `json:"source"`
	NoteID       string    `json:"note_id,omitempty"`
}

type Complication struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	OnsetDate    time.Time `json:"onset_date"`
	DateResolved bool      `json:"date_resolved"`
	Severity     string    `json:"severity,omitempty"` // mild|moderate|severe
	Resolved     bool      `json:"resolved"`
	Confidence   float64   `json:"confidence"`
	Source       Source    `json:"source"`
	NoteID       string    `json:"note_id,omitempty"`
}

type Medication struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Dose       string    `json:"dose,omitempty"`
	Frequency  string    `json:"frequency,omitempty"`
	Route      string    `json:"route,omitempty"`
	Confidence float64   `json:"confidence"`
	Source     Source    `json:"source"`
	NoteID     string    `json:"note_id,omitempty"`
}

// FunctionalScoreType enumerates supported functional scales.
type FunctionalScoreType string

const (
	ScoreKPS  FunctionalScoreType = "KPS"
	ScoreECOG FunctionalScoreType = "ECOG"
	ScoreMRS  FunctionalScoreType = "mRS"
	ScoreGCS  FunctionalScoreType = "GCS"
	ScoreASIA FunctionalScoreType = "ASIA"
)

type FunctionalScore struct {
	ID           uuid.UUID           `json:"id"`
	Type         FunctionalScoreType `json:"type"`
	Value        float64             `json:"value"`
	RawValue     string              `json:"raw_value,omitempty"`
	Date         time.Time           `json:"date"`
	DateResolved bool                `json:"date_resolved"`
	Confidence   float64             `json:"confidence"`
	Source       Source              `json:"source"`
	NoteID       string              `json:"note_id,omitempty"`
}

// ExtractedRecord is the structured output of one pipeline run.
type ExtractedRecord struct {
	Demographics     Demographics      `json:"demographics"`
	Dates            RecordDates       `json:"dates"`
	Pathology        Pathology         `json:"pathology"`
	Procedures       []Procedure       `json:"procedures,omitempty"`
	Complications    []Complication    `json:"complications,omitempty"`
	Medications      []Medication      `json:"medications,omitempty"`
	FunctionalScores []FunctionalScore `json:"functional_scores,omitempty"`
}

// Clone returns a deep copy. Orchestrator iterations snapshot records so
// refinement never mutates a previous iteration's result.
func (r ExtractedRecord) Clone() ExtractedRecord {
	out := r
	out.Dates.ProcedureDates = append([]DateField(nil), r.Dates.ProcedureDates...)
	out.Procedures = append([]Procedure(nil), r.Procedures...)
	out.Complications = append([]Complication(nil), r.Complications...)
	out.Medications = append([]Medication(nil), r.Medications...)
	out.FunctionalScores = append([]FunctionalScore(nil), r.FunctionalScores...)
	return out
}
