package intelligence

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/clinrecord-backend/internal/domain"
	"github.com/yungbote/clinrecord-backend/internal/extraction/patterns"
	"github.com/yungbote/clinrecord-backend/internal/normalization"
)

// problemInterventions maps a complication onto the procedures and drugs
// that treat it. An intervention pairs with a problem only through this
// table; proximity alone is not causation.
var problemInterventions = map[string][]string{
	"vasospasm":               {"nimodipine", "angioplasty", "verapamil", "milrinone", "cerebral angiogram"},
	"hydrocephalus":           {"external ventricular drain", "ventriculoperitoneal shunt", "lumbar drain"},
	"seizure":                 {"levetiracetam", "keppra", "phenytoin", "dilantin", "lacosamide", "valproate"},
	"meningitis":              {"vancomycin", "ceftriaxone", "cefepime", "metronidazole"},
	"ventriculitis":           {"vancomycin", "cefepime", "external ventricular drain"},
	"wound infection":         {"vancomycin", "ceftriaxone", "washout", "debridement"},
	"deep vein thrombosis":    {"heparin", "enoxaparin", "apixaban", "warfarin"},
	"pulmonary embolism":      {"heparin", "enoxaparin", "apixaban"},
	"hyponatremia":            {"hypertonic saline", "fludrocortisone", "salt tablets"},
	"cerebral edema":          {"mannitol", "hypertonic saline", "dexamethasone", "decompressive craniectomy"},
	"ischemic stroke":         {"mechanical thrombectomy", "aspirin", "heparin"},
	"urinary tract infection": {"ceftriaxone", "nitrofurantoin", "cephalexin"},
	"pneumonia":               {"vancomycin", "cefepime", "azithromycin"},
}

// outcomeCues in descending strength. First cue found in an outcome clause
// decides effectiveness.
var outcomeCues = []struct {
	cue           string
	effectiveness domain.Effectiveness
}{
	{"resolved", domain.EffectivenessExcellent},
	{"resolution", domain.EffectivenessExcellent},
	{"improved", domain.EffectivenessGood},
	{"improving", domain.EffectivenessGood},
	{"better", domain.EffectivenessGood},
	{"responding", domain.EffectivenessGood},
	{"no change", domain.EffectivenessPoor},
	{"unchanged", domain.EffectivenessPoor},
	{"persistent", domain.EffectivenessPoor},
	{"worsened", domain.EffectivenessPoor},
	{"worsening", domain.EffectivenessPoor},
	{"refractory", domain.EffectivenessPoor},
}

type outcomeStatement struct {
	problem  string
	sentence string
	date     time.Time
	dated    bool
	effect   domain.Effectiveness
}

// buildTreatmentResponses pairs each intervention with the nearest
// subsequent outcome statement for the same problem.
func buildTreatmentResponses(rec domain.ExtractedRecord, notes []domain.Note) []domain.TreatmentResponse {
	outcomes := collectOutcomes(rec, notes)
	var out []domain.TreatmentResponse

	for _, comp := range rec.Complications {
		problem := canonicalProblem(comp.Name)
		treatments, ok := problemInterventions[problem]
		if !ok {
			continue
		}

		for _, p := range rec.Procedures {
			if matchesIntervention(p.Name, treatments) {
				out = append(out, pairOutcome(p.ID, p.Name, comp, outcomes, p.Date, p.DateResolved))
			}
		}
		for _, med := range rec.Medications {
			if matchesIntervention(med.Name, treatments) {
				out = append(out, pairOutcome(med.ID, med.Name, comp, outcomes, comp.OnsetDate, comp.DateResolved))
			}
		}
	}
	return out
}

func pairOutcome(id uuid.UUID, intervention string, comp domain.Complication, outcomes []outcomeStatement, after time.Time, afterDated bool) domain.TreatmentResponse {
	resp := domain.TreatmentResponse{
		InterventionID: id,
		Intervention:   intervention,
		Problem:        comp.Name,
		Effectiveness:  domain.EffectivenessUnknown,
		Confidence:     0.5,
	}
	problem := canonicalProblem(comp.Name)

	var best *outcomeStatement
	for i := range outcomes {
		o := &outcomes[i]
		if o.problem != problem {
			continue
		}
		if afterDated && o.dated && o.date.Before(after) {
			continue
		}
		if best == nil || (o.dated && best.dated && o.date.Before(best.date)) {
			best = o
		}
	}
	if best != nil {
		resp.OutcomeStatement = best.sentence
		resp.OutcomeDate = best.date
		resp.Effectiveness = best.effect
		resp.Confidence = 0.7
	} else if comp.Resolved {
		resp.OutcomeStatement = "documented as resolved"
		resp.Effectiveness = domain.EffectivenessExcellent
		resp.Confidence = 0.6
	}
	return resp
}

// collectOutcomes scans note clauses for problem-name + outcome-cue
// co-occurrence.
func collectOutcomes(rec domain.ExtractedRecord, notes []domain.Note) []outcomeStatement {
	var out []outcomeStatement
	for _, note := range notes {
		for _, sent := range patterns.Sentences(note.Text) {
			low := strings.ToLower(sent.Text)
			for _, comp := range rec.Complications {
				problem := canonicalProblem(comp.Name)
				if !mentionsProblem(low, comp.Name) {
					continue
				}
				for _, oc := range outcomeCues {
					if strings.Contains(low, oc.cue) {
						stmt := outcomeStatement{
							problem:  problem,
							sentence: strings.TrimSpace(sent.Text),
							effect:   oc.effectiveness,
						}
						if note.ReportedDate != nil {
							stmt.date = *note.ReportedDate
							stmt.dated = true
						}
						out = append(out, stmt)
						break
					}
				}
			}
		}
	}
	return out
}

func canonicalProblem(name string) string {
	return normalization.EntityName(name)
}

func mentionsProblem(lowSentence, problemName string) bool {
	if strings.Contains(lowSentence, strings.ToLower(problemName)) {
		return true
	}
	// Token-level fallback for abbreviation/name mismatch.
	for _, t := range strings.Fields(normalization.EntityName(problemName)) {
		if len(t) >= 5 && strings.Contains(lowSentence, t) {
			return true
		}
	}
	return false
}

func matchesIntervention(name string, treatments []string) bool {
	canon := normalization.EntityName(name)
	for _, t := range treatments {
		if normalization.SameEntityName(canon, t) || strings.Contains(canon, t) || strings.Contains(t, canon) {
			return true
		}
	}
	return false
}
