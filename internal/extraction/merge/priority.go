package merge

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/clinrecord-backend/internal/domain"
)

// PriorityTable decides which source wins when pattern and LLM disagree on
// a field. The defaults were hand-tuned; ship overrides as data, not code.
type PriorityTable struct {
	// Default applies to any field not listed.
	Default domain.Source `yaml:"default"`
	// Fields maps field names (demographics.mrn, dates.admission,
	// medications.dose, ...) onto the winning source.
	Fields map[string]domain.Source `yaml:"fields"`
}

// DefaultPriorityTable: LLM wins on narrative-leaning fields, deterministic
// extraction wins where the pattern engine is strictly more reliable.
func DefaultPriorityTable() PriorityTable {
	return PriorityTable{
		Default: domain.SourceLLM,
		Fields: map[string]domain.Source{
			"demographics.mrn":        domain.SourcePattern,
			"dates.admission":         domain.SourcePattern,
			"dates.discharge":         domain.SourcePattern,
			"dates.procedure_dates":   domain.SourcePattern,
			"functional_scores":       domain.SourcePattern,
			"functional_scores.value": domain.SourcePattern,
			"medications.dose":        domain.SourcePattern,
		},
	}
}

// LoadPriorityTable reads a yaml override file. Unknown sources are
// rejected so a typo cannot silently flip a field to LLM-wins.
func LoadPriorityTable(path string) (PriorityTable, error) {
	table := DefaultPriorityTable()
	raw, err := os.ReadFile(path)
	if err != nil {
		return table, err
	}
	var loaded PriorityTable
	if err := yaml.Unmarshal(raw, &loaded); err != nil {
		return table, fmt.Errorf("parse priority table: %w", err)
	}
	if loaded.Default != "" {
		if err := validSource(loaded.Default); err != nil {
			return table, err
		}
		table.Default = loaded.Default
	}
	for field, src := range loaded.Fields {
		if err := validSource(src); err != nil {
			return table, fmt.Errorf("field %s: %w", field, err)
		}
		table.Fields[field] = src
	}
	return table, nil
}

func validSource(s domain.Source) error {
	if s != domain.SourcePattern && s != domain.SourceLLM {
		return fmt.Errorf("invalid source %q (want pattern or llm)", s)
	}
	return nil
}

// Winner returns the source that takes a contested field.
func (t PriorityTable) Winner(field string) domain.Source {
	if src, ok := t.Fields[field]; ok {
		return src
	}
	if t.Default != "" {
		return t.Default
	}
	return domain.SourceLLM
}
