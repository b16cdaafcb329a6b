package domain

// ExtractOptions are per-call settings. There are no process-wide toggles:
// every switch the pipeline honors lives here.
type ExtractOptions struct {
	EnablePreprocessing     bool    `json:"enable_preprocessing"`
	EnableDeduplication     bool    `json:"enable_deduplication"`
	UseLLM                  *bool   `json:"use_llm,omitempty"` // nil = use when an adapter is configured
	LLMProvider             string  `json:"llm_provider,omitempty"`
	MaxRefinementIterations int     `json:"max_refinement_iterations,omitempty"` // default 2
	QualityThreshold        float64 `json:"quality_threshold,omitempty"`         // default 0.7
}

func DefaultExtractOptions() ExtractOptions {
	return ExtractOptions{
		EnablePreprocessing:     true,
		EnableDeduplication:     true,
		MaxRefinementIterations: 2,
		QualityThreshold:        0.7,
	}
}

type ExtractionMethod string

const (
	MethodPatternOnly ExtractionMethod = "pattern-only"
	MethodLLMOnly     ExtractionMethod = "llm-only"
	MethodHybrid      ExtractionMethod = "hybrid"
)

type ValidationIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationResult struct {
	IsValid      bool              `json:"is_valid"`
	Errors       []ValidationIssue `json:"errors,omitempty"`
	Warnings     []ValidationIssue `json:"warnings,omitempty"`
	Completeness float64           `json:"completeness"`
	// Confidence aggregates post-verification field confidence; feeds the
	// quality score.
	Confidence float64 `json:"confidence"`
}

// QualityMetrics are recomputed every orchestration iteration and retained
// for trend reporting. All terms are in [0,1].
type QualityMetrics struct {
	Completeness float64 `json:"completeness"`
	Accuracy     float64 `json:"accuracy"`
	Confidence   float64 `json:"confidence"`
	Consistency  float64 `json:"consistency"`
	Overall      float64 `json:"overall"`
}

// FieldDisagreement records a pattern/LLM conflict the merger resolved.
type FieldDisagreement struct {
	Field        string `json:"field"`
	PatternValue string `json:"pattern_value"`
	LLMValue     string `json:"llm_value"`
	Winner       Source `json:"winner"`
}

type ResultMetadata struct {
	ExtractionMethod     ExtractionMethod    `json:"extraction_method"`
	RefinementIterations int                 `json:"refinement_iterations"`
	ProcessingTimeMs     int64               `json:"processing_time_ms"`
	NoteDedup            NoteDedupStats      `json:"note_dedup"`
	Disagreements        []FieldDisagreement `json:"disagreements,omitempty"`
	QualityHistory       []QualityMetrics    `json:"quality_history,omitempty"`
}

// OrchestrationResult is what every call gets back. It is structurally valid
// even on the Failed terminal state: Success=false plus best-so-far data.
type OrchestrationResult struct {
	Success        bool                 `json:"success"`
	ExtractedData  ExtractedRecord      `json:"extracted_data"`
	Intelligence   IntelligenceBundle   `json:"intelligence"`
	Validation     ValidationResult     `json:"validation"`
	QualityMetrics QualityMetrics       `json:"quality_metrics"`
	DedupGroups    []DeduplicationGroup `json:"dedup_groups,omitempty"`
	Metadata       ResultMetadata       `json:"metadata"`
}

// NarrativeGenerator is the downstream collaborator contract: consumes the
// structured record plus intelligence, emits prose. Implementations live
// outside this repo.
type NarrativeGenerator interface {
	Generate(record ExtractedRecord, intelligence IntelligenceBundle) (string, error)
}
