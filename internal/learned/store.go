package learned

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	redisclient "github.com/yungbote/clinrecord-backend/internal/clients/redis"
	"github.com/yungbote/clinrecord-backend/internal/domain"
	"github.com/yungbote/clinrecord-backend/internal/extraction/patterns"
	"github.com/yungbote/clinrecord-backend/internal/pkg/logger"
)

// Pattern is one learned rule ready for injection into the pattern engine.
type Pattern struct {
	ID          string
	Pathology   string
	Kind        domain.EntityKind
	Expr        string
	Canonical   string
	Specificity float64
}

// Store holds an atomic snapshot of learned patterns keyed by pathology.
// Reads never block: callers always see a complete snapshot, possibly
// empty. Writes happen only via Refresh, fed by the out-of-band learning
// process through Redis.
type Store struct {
	log      *logger.Logger
	source   redisclient.PatternSource
	snapshot atomic.Pointer[map[string][]Pattern]
}

func NewStore(log *logger.Logger, source redisclient.PatternSource) *Store {
	s := &Store{log: log.With("service", "LearnedPatternStore"), source: source}
	empty := map[string][]Pattern{}
	s.snapshot.Store(&empty)
	return s
}

// Refresh replaces the snapshot from the backing source. A source failure
// keeps the previous snapshot; the pipeline runs fine on built-in rules
// alone.
func (s *Store) Refresh(ctx context.Context) {
	if s.source == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	raw, err := s.source.LoadAll(ctx)
	if err != nil {
		s.log.Warn("learned pattern refresh failed, keeping previous snapshot", "error", err)
		return
	}

	next := make(map[string][]Pattern, len(raw))
	total := 0
	for key, stored := range raw {
		pathology := key
		if i := strings.IndexByte(key, ':'); i >= 0 {
			pathology = key[:i]
		}
		pathology = strings.ToLower(strings.TrimSpace(pathology))
		for _, sp := range stored {
			kind, ok := fieldKind(sp.Field)
			if !ok {
				continue
			}
			next[pathology] = append(next[pathology], Pattern{
				ID: sp.ID, Pathology: pathology, Kind: kind,
				Expr: sp.Expr, Canonical: sp.Canonical, Specificity: sp.Specificity,
			})
			total++
		}
	}
	s.snapshot.Store(&next)
	s.log.Info("learned pattern snapshot refreshed", "pathologies", len(next), "patterns", total)
}

// Get returns the learned patterns for one pathology kind. The returned
// slice is shared snapshot data; callers must not mutate it.
func (s *Store) Get(category domain.PathologyCategory) []Pattern {
	snap := *s.snapshot.Load()
	if len(snap) == 0 {
		return nil
	}
	return snap[strings.ToLower(category.String())]
}

// ExtraRules adapts a pathology's learned patterns for the rule engine.
func (s *Store) ExtraRules(category domain.PathologyCategory) []patterns.ExtraRule {
	pats := s.Get(category)
	if len(pats) == 0 {
		return nil
	}
	rules := make([]patterns.ExtraRule, 0, len(pats))
	for _, p := range pats {
		rules = append(rules, patterns.ExtraRule{
			ID:          "learned." + p.ID,
			Kind:        p.Kind,
			Expr:        p.Expr,
			Specificity: p.Specificity,
			Canonical:   p.Canonical,
		})
	}
	return rules
}

func fieldKind(field string) (domain.EntityKind, bool) {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "procedure", "procedures":
		return domain.KindProcedure, true
	case "complication", "complications":
		return domain.KindComplication, true
	}
	return "", false
}
