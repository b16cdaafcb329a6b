package patterns

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/clinrecord-backend/internal/domain"
	"github.com/yungbote/clinrecord-backend/internal/pkg/logger"
)

// Service is the deterministic rule engine. It never calls out of process;
// given the same notes it produces the same ExtractionSet.
type Service struct {
	log *logger.Logger
}

func NewService(log *logger.Logger) *Service {
	return &Service{log: log.With("service", "PatternExtractor")}
}

// ExtraRule is a learned pattern injected for a refinement pass, compiled
// from the learned-pattern store.
type ExtraRule struct {
	ID          string
	Kind        domain.EntityKind
	Expr        string
	Specificity float64
	Canonical   string
}

// Extract runs every category's ordered rule list over the normalized
// notes. extra carries learned rules; pass nil on the first iteration.
func (s *Service) Extract(notes []domain.Note, extra []ExtraRule) domain.ExtractionSet {
	set := domain.ExtractionSet{}

	s.extractDemographics(notes, &set.Record)
	s.extractDates(notes, &set.Record)
	s.extractPathology(notes, &set.Record)

	procRules := append([]Rule(nil), procedureRules...)
	compRules := append([]Rule(nil), complicationRules...)
	for _, er := range extra {
		r, err := compileExtraRule(er)
		if err != nil {
			s.log.Warn("learned rule did not compile, skipping", "rule_id", er.ID, "error", err)
			continue
		}
		switch er.Kind {
		case domain.KindProcedure:
			procRules = append(procRules, r)
		case domain.KindComplication:
			compRules = append(compRules, r)
		}
	}

	set.Mentions = append(set.Mentions, s.extractByRules(notes, procRules)...)
	set.Mentions = append(set.Mentions, s.extractByRules(notes, compRules)...)
	set.Mentions = append(set.Mentions, s.extractMedications(notes)...)
	set.Mentions = append(set.Mentions, s.extractFunctionalScores(notes)...)

	s.log.Debug("pattern extraction done",
		"notes", len(notes),
		"mentions", len(set.Mentions),
		"pathology", set.Record.Pathology.Category.String(),
	)
	return set
}

func compileExtraRule(er ExtraRule) (Rule, error) {
	re, err := regexp.Compile(er.Expr)
	if err != nil {
		return Rule{}, err
	}
	spec := er.Specificity
	if spec <= 0 || spec > 1 {
		spec = 0.6
	}
	return Rule{ID: er.ID, Kind: er.Kind, RE: re, Specificity: spec, Canonical: er.Canonical}, nil
}

// extractByRules applies an ordered rule list clause by clause. The first
// rule matching a clause span wins; later, less specific rules cannot
// re-claim the same span.
func (s *Service) extractByRules(notes []domain.Note, rules []Rule) []domain.EntityMention {
	var out []domain.EntityMention
	for _, note := range notes {
		for _, sent := range Sentences(note.Text) {
			claimed := make([][2]int, 0, 2)
			for _, rule := range rules {
				for _, m := range rule.RE.FindAllStringSubmatchIndex(sent.Text, -1) {
					start, end := m[0], m[1]
					if overlapsAny(claimed, start, end) {
						continue
					}
					name := rule.Canonical
					if name == "" {
						gi := rule.NameGroup * 2
						if gi+1 < len(m) && m[gi] >= 0 {
							name = sent.Text[m[gi]:m[gi+1]]
						} else {
							name = sent.Text[start:end]
						}
					}
					name = cleanEntityName(name)
					if name == "" {
						continue
					}
					claimed = append(claimed, [2]int{start, end})

					mention := domain.EntityMention{
						ID:         uuid.New(),
						Kind:       rule.Kind,
						Name:       name,
						NoteID:     note.ID,
						NoteDate:   note.ReportedDate,
						Sentence:   strings.TrimSpace(sent.Text),
						SpanStart:  sent.Start + start,
						SpanEnd:    sent.Start + end,
						RuleID:     rule.ID,
						Source:     domain.SourcePattern,
						Negated:    IsNegated(sent.Text, start),
						Qualifiers: TemporalQualifiers(sent.Text),
					}
					if mention.Negated {
						continue
					}
					if rule.Kind == domain.KindComplication {
						if sev := severityRE.FindString(sent.Text); sev != "" {
							mention.Severity = strings.ToLower(sev)
						}
						mention.ResolvedFlag = mention.HasQualifier(QualifierResolved)
					}
					mention.Confidence = AdjustConfidence(rule.Specificity, 0, IsUncertain(sent.Text), mention.Qualifiers)
					out = append(out, mention)
				}
			}
		}
	}
	return corroborate(out)
}

func overlapsAny(claimed [][2]int, start, end int) bool {
	for _, c := range claimed {
		if start < c[1] && end > c[0] {
			return true
		}
	}
	return false
}

var nameTrimRE = regexp.MustCompile(`(?i)^(?:the|a|an)\s+`)

func cleanEntityName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = nameTrimRE.ReplaceAllString(name, "")
	name = strings.Trim(name, " -/")
	if len(name) < 3 {
		return ""
	}
	return name
}

// corroborate raises confidence for entities mentioned independently in
// more than one note.
func corroborate(mentions []domain.EntityMention) []domain.EntityMention {
	noteSets := map[string]map[string]bool{}
	for _, m := range mentions {
		key := string(m.Kind) + ":" + m.Name
		if noteSets[key] == nil {
			noteSets[key] = map[string]bool{}
		}
		noteSets[key][m.NoteID] = true
	}
	for i := range mentions {
		key := string(mentions[i].Kind) + ":" + mentions[i].Name
		if n := len(noteSets[key]); n > 1 {
			mentions[i].Confidence = AdjustConfidence(mentions[i].Confidence, n-1, false, nil)
		}
	}
	return mentions
}
