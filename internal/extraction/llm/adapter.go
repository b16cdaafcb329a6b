package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/clinrecord-backend/internal/clients/openai"
	"github.com/yungbote/clinrecord-backend/internal/domain"
	apperrors "github.com/yungbote/clinrecord-backend/internal/pkg/errors"
	"github.com/yungbote/clinrecord-backend/internal/pkg/httpx"
	"github.com/yungbote/clinrecord-backend/internal/pkg/logger"
)

// Extractor is the external-collaborator contract: structured record out,
// typed error out, never a raw string.
type Extractor interface {
	Extract(ctx context.Context, notes []domain.Note) (domain.ExtractionSet, error)
}

type Adapter struct {
	log    *logger.Logger
	client openai.Client
}

func NewAdapter(log *logger.Logger, client openai.Client) *Adapter {
	return &Adapter{log: log.With("service", "LLMExtractorAdapter"), client: client}
}

// Extract sends the full note batch through one structured-output call.
// Transport failures come back as transient AdapterErrors (the pipeline
// degrades to pattern-only); malformed model output is a non-transient
// AdapterError and is never retried.
func (a *Adapter) Extract(ctx context.Context, notes []domain.Note) (domain.ExtractionSet, error) {
	if len(notes) == 0 {
		return domain.ExtractionSet{}, &apperrors.AdapterError{Op: "extract", Err: fmt.Errorf("no notes"), Transient: false}
	}

	var sb strings.Builder
	for i, n := range notes {
		fmt.Fprintf(&sb, "--- NOTE %d", i+1)
		if n.Type != "" {
			fmt.Fprintf(&sb, " (%s)", n.Type)
		}
		if n.ReportedDate != nil {
			fmt.Fprintf(&sb, " dated %s", n.ReportedDate.Format("2006-01-02"))
		}
		sb.WriteString(" ---\n")
		sb.WriteString(n.Text)
		sb.WriteString("\n\n")
	}

	raw, err := a.client.GenerateJSON(ctx, systemPrompt, sb.String(), "clinical_record", RecordSchema())
	if err != nil {
		transient := httpx.IsRetryableError(err) || ctx.Err() != nil
		a.log.Warn("llm extraction failed", "transient", transient, "error", err)
		return domain.ExtractionSet{}, &apperrors.AdapterError{Op: "extract", Err: err, Transient: transient}
	}

	set, convErr := a.convert(raw)
	if convErr != nil {
		return domain.ExtractionSet{}, &apperrors.AdapterError{Op: "convert", Err: convErr, Transient: false}
	}
	a.log.Debug("llm extraction done", "mentions", len(set.Mentions))
	return set, nil
}

// convert maps the schema-shaped object onto typed domain structs. Missing
// keys are tolerated; wrong-typed containers are a format error.
func (a *Adapter) convert(raw map[string]any) (domain.ExtractionSet, error) {
	set := domain.ExtractionSet{}
	rec := &set.Record

	if demo, ok := raw["demographics"].(map[string]any); ok {
		if v := str(demo["name"]); v != "" {
			rec.Demographics.Name = domain.StringField{Value: v, Confidence: 0.8, Source: domain.SourceLLM}
		}
		if v := str(demo["mrn"]); v != "" {
			rec.Demographics.MRN = domain.StringField{Value: v, Confidence: 0.8, Source: domain.SourceLLM}
		}
		if age := num(demo["age"]); age > 0 && age < 130 {
			rec.Demographics.Age = domain.IntField{Value: int(age), Present: true, Confidence: 0.8, Source: domain.SourceLLM}
		}
		if v := strings.ToLower(str(demo["sex"])); v == "male" || v == "female" {
			rec.Demographics.Sex = domain.StringField{Value: v, Confidence: 0.8, Source: domain.SourceLLM}
		}
	} else if raw["demographics"] != nil {
		return set, fmt.Errorf("demographics is not an object")
	}

	if dates, ok := raw["dates"].(map[string]any); ok {
		rec.Dates.Admission = dateField(str(dates["admission"]))
		rec.Dates.Discharge = dateField(str(dates["discharge"]))
		for _, v := range list(dates["procedure_dates"]) {
			if df := dateField(str(v)); df.Resolved {
				rec.Dates.ProcedureDates = append(rec.Dates.ProcedureDates, df)
			}
		}
	}

	if path, ok := raw["pathology"].(map[string]any); ok {
		if v := str(path["type"]); v != "" {
			rec.Pathology = domain.Pathology{
				Category:   domain.ParsePathologyCategory(v),
				Subtype:    strField(str(path["subtype"])),
				Location:   strField(str(path["location"])),
				Confidence: 0.8,
				Source:     domain.SourceLLM,
			}
		}
	}

	for _, item := range list(raw["procedures"]) {
		obj, ok := item.(map[string]any)
		if !ok {
			return set, fmt.Errorf("procedure entry is not an object")
		}
		name := strings.ToLower(str(obj["name"]))
		if name == "" {
			continue
		}
		m := domain.EntityMention{
			ID: uuid.New(), Kind: domain.KindProcedure, Name: name,
			Source: domain.SourceLLM, Confidence: 0.8,
		}
		applyDate(&m, str(obj["date"]))
		set.Mentions = append(set.Mentions, m)
	}

	for _, item := range list(raw["complications"]) {
		obj, ok := item.(map[string]any)
		if !ok {
			return set, fmt.Errorf("complication entry is not an object")
		}
		name := strings.ToLower(str(obj["name"]))
		if name == "" {
			continue
		}
		m := domain.EntityMention{
			ID: uuid.New(), Kind: domain.KindComplication, Name: name,
			Severity: strings.ToLower(str(obj["severity"])), ResolvedFlag: boolean(obj["resolved"]),
			Source: domain.SourceLLM, Confidence: 0.75,
		}
		applyDate(&m, str(obj["onset_date"]))
		set.Mentions = append(set.Mentions, m)
	}

	for _, item := range list(raw["medications"]) {
		obj, ok := item.(map[string]any)
		if !ok {
			return set, fmt.Errorf("medication entry is not an object")
		}
		name := strings.ToLower(str(obj["name"]))
		if name == "" {
			continue
		}
		set.Mentions = append(set.Mentions, domain.EntityMention{
			ID: uuid.New(), Kind: domain.KindMedication, Name: name,
			Dose:      strings.ToLower(str(obj["dose"])),
			Frequency: strings.ToLower(str(obj["frequency"])),
			Route:     strings.ToUpper(str(obj["route"])),
			Source:    domain.SourceLLM, Confidence: 0.75,
		})
	}

	for _, item := range list(raw["functional_scores"]) {
		obj, ok := item.(map[string]any)
		if !ok {
			return set, fmt.Errorf("functional score entry is not an object")
		}
		typ, ok := scoreType(str(obj["type"]))
		if !ok {
			continue
		}
		m := domain.EntityMention{
			ID: uuid.New(), Kind: domain.KindFunctionalScore, Name: string(typ),
			ScoreType: typ, ScoreValue: num(obj["value"]),
			Source: domain.SourceLLM, Confidence: 0.75,
		}
		applyDate(&m, str(obj["date"]))
		set.Mentions = append(set.Mentions, m)
	}

	return set, nil
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func num(v any) float64 {
	f, _ := v.(float64)
	return f
}

func boolean(v any) bool {
	b, _ := v.(bool)
	return b
}

func list(v any) []any {
	l, _ := v.([]any)
	return l
}

func strField(v string) domain.StringField {
	if v == "" {
		return domain.StringField{}
	}
	return domain.StringField{Value: v, Confidence: 0.8, Source: domain.SourceLLM}
}

func dateField(v string) domain.DateField {
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return domain.DateField{}
	}
	return domain.DateField{Value: t, Resolved: true, Confidence: 0.8, Source: domain.SourceLLM}
}

func applyDate(m *domain.EntityMention, v string) {
	if t, err := time.Parse("2006-01-02", v); err == nil {
		m.Date = t
		m.DateResolved = true
	}
}

func scoreType(v string) (domain.FunctionalScoreType, bool) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "KPS":
		return domain.ScoreKPS, true
	case "ECOG":
		return domain.ScoreECOG, true
	case "MRS":
		return domain.ScoreMRS, true
	case "GCS":
		return domain.ScoreGCS, true
	case "ASIA":
		return domain.ScoreASIA, true
	}
	return "", false
}
