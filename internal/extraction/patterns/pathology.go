package patterns

import (
	"regexp"
	"strings"

	"github.com/yungbote/clinrecord-backend/internal/domain"
)

type pathologyPattern struct {
	id       string
	re       *regexp.Regexp
	kind     domain.PathologyKind
	subtype  string
	baseConf float64
}

var pathologyPatterns = []pathologyPattern{
	{id: "path.sah", re: regexp.MustCompile(`(?i)\bsubarachnoid\s+hemorrhage\b|\bSAH\b`), kind: domain.PathologyVascular, subtype: "subarachnoid hemorrhage", baseConf: 0.85},
	{id: "path.aneurysm", re: regexp.MustCompile(`(?i)\baneurysm\b`), kind: domain.PathologyVascular, subtype: "aneurysm", baseConf: 0.8},
	{id: "path.avm", re: regexp.MustCompile(`(?i)\barteriovenous\s+malformation\b|\bAVM\b`), kind: domain.PathologyVascular, subtype: "arteriovenous malformation", baseConf: 0.85},
	{id: "path.ich", re: regexp.MustCompile(`(?i)\bintracerebral\s+hemorrhage\b|\bICH\b`), kind: domain.PathologyVascular, subtype: "intracerebral hemorrhage", baseConf: 0.8},
	{id: "path.gbm", re: regexp.MustCompile(`(?i)\bglioblastoma\b|\bGBM\b`), kind: domain.PathologyTumor, subtype: "glioblastoma", baseConf: 0.9},
	{id: "path.meningioma", re: regexp.MustCompile(`(?i)\bmeningioma\b`), kind: domain.PathologyTumor, subtype: "meningioma", baseConf: 0.9},
	{id: "path.glioma", re: regexp.MustCompile(`(?i)\bglioma\b|\bastrocytoma\b|\boligodendroglioma\b`), kind: domain.PathologyTumor, subtype: "glioma", baseConf: 0.85},
	{id: "path.mets", re: regexp.MustCompile(`(?i)\b(?:brain\s+)?metastas[ei]s\b|\bmetastatic\b`), kind: domain.PathologyTumor, subtype: "metastasis", baseConf: 0.8},
	{id: "path.pituitary", re: regexp.MustCompile(`(?i)\bpituitary\s+(?:adenoma|macroadenoma|tumor)\b`), kind: domain.PathologyTumor, subtype: "pituitary adenoma", baseConf: 0.9},
	{id: "path.sdh", re: regexp.MustCompile(`(?i)\bsubdural\s+hematoma\b|\bSDH\b`), kind: domain.PathologyTrauma, subtype: "subdural hematoma", baseConf: 0.85},
	{id: "path.edh", re: regexp.MustCompile(`(?i)\bepidural\s+hematoma\b|\bEDH\b`), kind: domain.PathologyTrauma, subtype: "epidural hematoma", baseConf: 0.85},
	{id: "path.tbi", re: regexp.MustCompile(`(?i)\btraumatic\s+brain\s+injury\b|\bTBI\b`), kind: domain.PathologyTrauma, subtype: "traumatic brain injury", baseConf: 0.8},
	{id: "path.stenosis", re: regexp.MustCompile(`(?i)\b(?:cervical|lumbar|spinal)\s+stenosis\b`), kind: domain.PathologyDegenerative, subtype: "spinal stenosis", baseConf: 0.85},
	{id: "path.herniation", re: regexp.MustCompile(`(?i)\bdisc\s+herniation\b|\bherniated\s+(?:disc|disk)\b`), kind: domain.PathologyDegenerative, subtype: "disc herniation", baseConf: 0.85},
	{id: "path.abscess", re: regexp.MustCompile(`(?i)\b(?:brain|cerebral|epidural|spinal)\s+abscess\b`), kind: domain.PathologyInfection, subtype: "abscess", baseConf: 0.85},
	{id: "path.osteo", re: regexp.MustCompile(`(?i)\bosteomyelitis\b|\bdiscitis\b`), kind: domain.PathologyInfection, subtype: "osteomyelitis", baseConf: 0.85},
	{id: "path.nph", re: regexp.MustCompile(`(?i)\bnormal\s+pressure\s+hydrocephalus\b|\bNPH\b`), kind: domain.PathologyHydrocephalus, subtype: "normal pressure hydrocephalus", baseConf: 0.85},
	{id: "path.epilepsy", re: regexp.MustCompile(`(?i)\b(?:refractory|intractable|medically\s+refractory)\s+epilepsy\b`), kind: domain.PathologyFunctional, subtype: "epilepsy", baseConf: 0.85},
	{id: "path.trigeminal", re: regexp.MustCompile(`(?i)\btrigeminal\s+neuralgia\b`), kind: domain.PathologyFunctional, subtype: "trigeminal neuralgia", baseConf: 0.9},
}

var locationRE = regexp.MustCompile(`(?i)\b(left|right|bilateral|midline)\s+(frontal|parietal|temporal|occipital|cerebellar|frontotemporal|frontoparietal|temporoparietal|MCA|ACA|PCA|ICA|ACOM|PCOM|basilar|vertebral|sphenoid|parasagittal|convexity|thalamic|pontine|brainstem)\b|\b(C[1-8]|T(?:1[0-2]|[1-9])|L[1-5]|S1)(?:\s*[-–]\s*(C[1-8]|T(?:1[0-2]|[1-9])|L[1-5]|S1))?\b`)

func (s *Service) extractPathology(notes []domain.Note, rec *domain.ExtractedRecord) {
	type hit struct {
		pat   pathologyPattern
		count int
	}
	hits := map[string]*hit{}

	for _, note := range notes {
		for _, sent := range Sentences(note.Text) {
			for _, pat := range pathologyPatterns {
				loc := pat.re.FindStringIndex(sent.Text)
				if loc == nil {
					continue
				}
				if IsNegated(sent.Text, loc[0]) {
					continue
				}
				h, ok := hits[pat.id]
				if !ok {
					h = &hit{pat: pat}
					hits[pat.id] = h
				}
				h.count++
			}
		}
	}
	if len(hits) == 0 {
		return
	}

	// The dominant pattern wins: most corroborated, then most specific.
	// Walk the table in declaration order so a full tie always lands on the
	// same entry regardless of map iteration.
	var best *hit
	for _, pat := range pathologyPatterns {
		h, ok := hits[pat.id]
		if !ok {
			continue
		}
		if best == nil || h.count > best.count ||
			(h.count == best.count && h.pat.baseConf > best.pat.baseConf) {
			best = h
		}
	}

	conf := AdjustConfidence(best.pat.baseConf, best.count-1, false, nil)
	rec.Pathology = domain.Pathology{
		Category:   domain.KnownPathology(best.pat.kind),
		Subtype:    domain.StringField{Value: best.pat.subtype, Confidence: conf, Source: domain.SourcePattern},
		Confidence: conf,
		Source:     domain.SourcePattern,
	}

	for _, note := range notes {
		if m := locationRE.FindString(note.Text); m != "" {
			rec.Pathology.Location = domain.StringField{
				Value: strings.ToLower(strings.TrimSpace(m)), Confidence: 0.8, Source: domain.SourcePattern,
			}
			break
		}
	}
}
