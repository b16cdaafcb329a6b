package patterns

import (
	"regexp"

	"github.com/yungbote/clinrecord-backend/internal/domain"
)

// Rule is one deterministic matcher. Specificity is the base confidence a
// lone match earns; lexicon hits sit lower than structured captures.
type Rule struct {
	ID          string
	Kind        domain.EntityKind
	RE          *regexp.Regexp
	Specificity float64
	// NameGroup selects the capture group holding the entity name;
	// 0 means the whole match.
	NameGroup int
	// Canonical overrides the captured text with a fixed entity name.
	Canonical string
}

// Procedure rules, ordered most specific first. Structured verb patterns
// beat bare lexicon hits.
var procedureRules = []Rule{
	{ID: "proc.underwent", Kind: domain.KindProcedure, Specificity: 0.85, NameGroup: 1,
		RE: regexp.MustCompile(`(?i)\bunderwent\s+(?:a\s+|an\s+|emergent\s+|elective\s+)?([a-z][a-z /-]{3,60}?)(?:\s+on\b|\s+at\b|\s+for\b|\s+with\b|[,.]|$)`)},
	{ID: "proc.performed", Kind: domain.KindProcedure, Specificity: 0.8, NameGroup: 1,
		RE: regexp.MustCompile(`(?i)\b([a-z][a-z /-]{3,60}?)\s+was\s+performed\b`)},
	{ID: "proc.placement_of", Kind: domain.KindProcedure, Specificity: 0.8, NameGroup: 1,
		RE: regexp.MustCompile(`(?i)\bplacement\s+of\s+(?:a\s+|an\s+)?([a-z][a-z /-]{2,60}?)(?:\s+on\b|[,.]|$)`)},
	{ID: "proc.sp", Kind: domain.KindProcedure, Specificity: 0.7, NameGroup: 1,
		RE: regexp.MustCompile(`(?i)\bs/p\s+([a-z][a-z /-]{2,60}?)(?:\s+on\b|\s+pod\b|[,.]|$)`)},
	{ID: "proc.evd_placed", Kind: domain.KindProcedure, Specificity: 0.85, Canonical: "external ventricular drain placement",
		RE: regexp.MustCompile(`(?i)\bEVD\s+(?:was\s+)?placed\b|\bexternal\s+ventricular\s+drain\s+(?:was\s+)?(?:placed|inserted)\b`)},
	{ID: "proc.coiling", Kind: domain.KindProcedure, Specificity: 0.75, Canonical: "aneurysm coiling",
		RE: regexp.MustCompile(`(?i)\b(?:endovascular\s+)?coiling\b|\bcoil\s+embolization\b`)},
	{ID: "proc.clipping", Kind: domain.KindProcedure, Specificity: 0.75, Canonical: "aneurysm clipping",
		RE: regexp.MustCompile(`(?i)\baneurysm\s+clipping\b|\bclip\s+ligation\b|\bclipping\s+of\s+(?:the\s+)?aneurysm\b`)},
	{ID: "proc.craniotomy", Kind: domain.KindProcedure, Specificity: 0.7, Canonical: "craniotomy",
		RE: regexp.MustCompile(`(?i)\bcraniotomy\b`)},
	{ID: "proc.craniectomy", Kind: domain.KindProcedure, Specificity: 0.7, Canonical: "decompressive craniectomy",
		RE: regexp.MustCompile(`(?i)\b(?:decompressive\s+)?craniectomy\b`)},
	{ID: "proc.vps", Kind: domain.KindProcedure, Specificity: 0.7, Canonical: "ventriculoperitoneal shunt placement",
		RE: regexp.MustCompile(`(?i)\b(?:VP|ventriculoperitoneal)\s+shunt\b`)},
	{ID: "proc.laminectomy", Kind: domain.KindProcedure, Specificity: 0.7, Canonical: "laminectomy",
		RE: regexp.MustCompile(`(?i)\blaminectomy\b`)},
	{ID: "proc.discectomy", Kind: domain.KindProcedure, Specificity: 0.7, Canonical: "discectomy",
		RE: regexp.MustCompile(`(?i)\bdiscectomy\b`)},
	{ID: "proc.fusion", Kind: domain.KindProcedure, Specificity: 0.65, Canonical: "spinal fusion",
		RE: regexp.MustCompile(`(?i)\bspinal\s+fusion\b|\bACDF\b|\bposterior\s+fusion\b`)},
	{ID: "proc.resection", Kind: domain.KindProcedure, Specificity: 0.7, Canonical: "tumor resection",
		RE: regexp.MustCompile(`(?i)\btumor\s+resection\b|\bgross\s+total\s+resection\b|\bsubtotal\s+resection\b`)},
	{ID: "proc.thrombectomy", Kind: domain.KindProcedure, Specificity: 0.7, Canonical: "mechanical thrombectomy",
		RE: regexp.MustCompile(`(?i)\b(?:mechanical\s+)?thrombectomy\b`)},
	{ID: "proc.angiogram", Kind: domain.KindProcedure, Specificity: 0.6, Canonical: "cerebral angiogram",
		RE: regexp.MustCompile(`(?i)\b(?:cerebral\s+|diagnostic\s+)?angiogram\b`)},
	{ID: "proc.lumbar_drain", Kind: domain.KindProcedure, Specificity: 0.7, Canonical: "lumbar drain placement",
		RE: regexp.MustCompile(`(?i)\blumbar\s+drain\s+(?:was\s+)?placed\b`)},
	{ID: "proc.trach", Kind: domain.KindProcedure, Specificity: 0.65, Canonical: "tracheostomy",
		RE: regexp.MustCompile(`(?i)\btracheostomy\b|\btrach\s+placed\b`)},
	{ID: "proc.peg", Kind: domain.KindProcedure, Specificity: 0.65, Canonical: "PEG tube placement",
		RE: regexp.MustCompile(`(?i)\bPEG\s+(?:tube\s+)?(?:placed|placement)\b`)},
}

// Complication rules. Lexicon-driven; clause-level cues decide negation and
// resolution state afterwards.
var complicationRules = []Rule{
	{ID: "comp.vasospasm", Kind: domain.KindComplication, Specificity: 0.75, Canonical: "vasospasm",
		RE: regexp.MustCompile(`(?i)\bvasospasm\b`)},
	{ID: "comp.hydrocephalus", Kind: domain.KindComplication, Specificity: 0.75, Canonical: "hydrocephalus",
		RE: regexp.MustCompile(`(?i)\bhydrocephalus\b`)},
	{ID: "comp.rebleed", Kind: domain.KindComplication, Specificity: 0.75, Canonical: "rebleeding",
		RE: regexp.MustCompile(`(?i)\brebleed(?:ing)?\b|\bre-?hemorrhage\b`)},
	{ID: "comp.seizure", Kind: domain.KindComplication, Specificity: 0.7, Canonical: "seizure",
		RE: regexp.MustCompile(`(?i)\bseizures?\b|\bstatus\s+epilepticus\b`)},
	{ID: "comp.meningitis", Kind: domain.KindComplication, Specificity: 0.75, Canonical: "meningitis",
		RE: regexp.MustCompile(`(?i)\bmeningitis\b`)},
	{ID: "comp.ventriculitis", Kind: domain.KindComplication, Specificity: 0.75, Canonical: "ventriculitis",
		RE: regexp.MustCompile(`(?i)\bventriculitis\b`)},
	{ID: "comp.wound_infection", Kind: domain.KindComplication, Specificity: 0.7, Canonical: "wound infection",
		RE: regexp.MustCompile(`(?i)\bwound\s+infection\b|\bsurgical\s+site\s+infection\b`)},
	{ID: "comp.csf_leak", Kind: domain.KindComplication, Specificity: 0.75, Canonical: "CSF leak",
		RE: regexp.MustCompile(`(?i)\bCSF\s+leak\b|\bcerebrospinal\s+fluid\s+leak\b`)},
	{ID: "comp.dvt", Kind: domain.KindComplication, Specificity: 0.7, Canonical: "deep vein thrombosis",
		RE: regexp.MustCompile(`(?i)\bDVT\b|\bdeep\s+vein\s+thrombosis\b`)},
	{ID: "comp.pe", Kind: domain.KindComplication, Specificity: 0.7, Canonical: "pulmonary embolism",
		RE: regexp.MustCompile(`(?i)\bpulmonary\s+embolism\b|\bPE\b(?:\s+(?:was|is)\s+(?:confirmed|diagnosed|suspected))`)},
	{ID: "comp.hyponatremia", Kind: domain.KindComplication, Specificity: 0.7, Canonical: "hyponatremia",
		RE: regexp.MustCompile(`(?i)\bhyponatremia\b`)},
	{ID: "comp.stroke", Kind: domain.KindComplication, Specificity: 0.65, Canonical: "ischemic stroke",
		RE: regexp.MustCompile(`(?i)\bischemic\s+stroke\b|\bcerebral\s+infarct(?:ion)?\b|\bdelayed\s+cerebral\s+ischemia\b`)},
	{ID: "comp.uti", Kind: domain.KindComplication, Specificity: 0.65, Canonical: "urinary tract infection",
		RE: regexp.MustCompile(`(?i)\bUTI\b|\burinary\s+tract\s+infection\b`)},
	{ID: "comp.pneumonia", Kind: domain.KindComplication, Specificity: 0.65, Canonical: "pneumonia",
		RE: regexp.MustCompile(`(?i)\bpneumonia\b`)},
	{ID: "comp.siadh", Kind: domain.KindComplication, Specificity: 0.7, Canonical: "SIADH",
		RE: regexp.MustCompile(`(?i)\bSIADH\b`)},
	{ID: "comp.dI", Kind: domain.KindComplication, Specificity: 0.7, Canonical: "diabetes insipidus",
		RE: regexp.MustCompile(`(?i)\bdiabetes\s+insipidus\b`)},
	{ID: "comp.hemorrhagic_conversion", Kind: domain.KindComplication, Specificity: 0.75, Canonical: "hemorrhagic conversion",
		RE: regexp.MustCompile(`(?i)\bhemorrhagic\s+conversion\b`)},
}

var severityRE = regexp.MustCompile(`(?i)\b(mild|moderate|severe|critical)\b`)

// Medication lexicon. A generic dose/route/frequency capture follows the
// matched name in medications.go.
var medicationLexicon = []string{
	"nimodipine", "levetiracetam", "keppra", "dexamethasone", "decadron",
	"phenytoin", "dilantin", "lacosamide", "valproate", "mannitol",
	"hypertonic saline", "aspirin", "clopidogrel", "plavix", "heparin",
	"enoxaparin", "lovenox", "warfarin", "apixaban", "rivaroxaban",
	"vancomycin", "ceftriaxone", "cefepime", "metronidazole", "labetalol",
	"nicardipine", "metoprolol", "amlodipine", "hydralazine", "midodrine",
	"fludrocortisone", "oxycodone", "acetaminophen", "gabapentin",
	"ondansetron", "pantoprazole", "famotidine", "insulin", "sertraline",
	"baclofen", "tizanidine",
}

// Anticoagulants and antiplatelets get flagged for the cross-field
// plausibility check against hemorrhagic pathology.
var anticoagulantNames = map[string]bool{
	"heparin": true, "enoxaparin": true, "lovenox": true, "warfarin": true,
	"apixaban": true, "rivaroxaban": true, "aspirin": true,
	"clopidogrel": true, "plavix": true,
}

func IsAnticoagulant(name string) bool {
	return anticoagulantNames[name]
}
