package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/yungbote/clinrecord-backend/internal/domain"
	"github.com/yungbote/clinrecord-backend/internal/pkg/logger"
)

// NoteConfig tunes the note-level pass.
type NoteConfig struct {
	// NearThreshold is the Jaccard shingle similarity above which two notes
	// are near-duplicates.
	NearThreshold float64
	// ComplementaryLow/High bound the similarity band where two notes that
	// share a temporal context get merged instead of dropped.
	ComplementaryLow  float64
	ComplementaryHigh float64
	ShingleSize       int
}

func DefaultNoteConfig() NoteConfig {
	return NoteConfig{
		NearThreshold:     0.85,
		ComplementaryLow:  0.30,
		ComplementaryHigh: 0.60,
		ShingleSize:       3,
	}
}

type Service struct {
	log *logger.Logger
	cfg NoteConfig
}

func NewService(log *logger.Logger, cfg NoteConfig) *Service {
	def := DefaultNoteConfig()
	if cfg.NearThreshold <= 0 || cfg.NearThreshold > 1 {
		cfg.NearThreshold = def.NearThreshold
	}
	if cfg.ComplementaryLow <= 0 {
		cfg.ComplementaryLow = def.ComplementaryLow
	}
	if cfg.ComplementaryHigh <= 0 {
		cfg.ComplementaryHigh = def.ComplementaryHigh
	}
	if cfg.ShingleSize <= 0 {
		cfg.ShingleSize = def.ShingleSize
	}
	return &Service{log: log.With("service", "Deduplicator"), cfg: cfg}
}

var survivorKeywords = []string{"operative", "discharge", "procedure", "hospital course"}

// entityHintRE is a cheap recognizer used only for survivor scoring; the
// real extraction happens downstream.
var entityHintRE = regexp.MustCompile(`(?i)\b(EVD|craniotomy|coiling|clipping|shunt|vasospasm|hydrocephalus|seizure|GCS|KPS|mRS|mg|POD|aneurysm|SAH|hemorrhage|resection)\b`)

// DedupeNotes drops byte-identical and near-duplicate notes and merges
// complementary ones. Order of survivors follows the input.
func (s *Service) DedupeNotes(notes []domain.Note) ([]domain.Note, domain.NoteDedupStats) {
	stats := domain.NoteDedupStats{OriginalCount: len(notes)}
	if len(notes) < 2 {
		stats.FinalCount = len(notes)
		return notes, stats
	}

	// Exact pass: normalized-text hash.
	seen := map[string]bool{}
	exact := make([]domain.Note, 0, len(notes))
	for _, n := range notes {
		fp := fingerprint(n.Text)
		if seen[fp] {
			stats.ExactRemoved++
			continue
		}
		seen[fp] = true
		exact = append(exact, n)
	}

	// Near pass: pairwise shingle similarity.
	type entry struct {
		note     domain.Note
		shingles map[string]bool
		norm     string
		dropped  bool
	}
	entries := make([]*entry, len(exact))
	for i, n := range exact {
		norm := normalizeForCompare(n.Text)
		entries[i] = &entry{note: n, shingles: shingleSet(norm, s.cfg.ShingleSize), norm: norm}
	}

	for i := 0; i < len(entries); i++ {
		if entries[i].dropped {
			continue
		}
		for j := i + 1; j < len(entries); j++ {
			if entries[j].dropped {
				continue
			}
			sim := jaccard(entries[i].shingles, entries[j].shingles)

			switch {
			case sim >= s.cfg.NearThreshold || isSubset(entries[i].norm, entries[j].norm):
				loser, winner := i, j
				if survivorScore(entries[i].note) >= survivorScore(entries[j].note) {
					loser, winner = j, i
				}
				entries[loser].dropped = true
				stats.NearRemoved++
				s.log.Debug("near-duplicate note dropped",
					"kept", entries[winner].note.ID, "dropped", entries[loser].note.ID, "similarity", sim)

			case sim >= s.cfg.ComplementaryLow && sim <= s.cfg.ComplementaryHigh && sameTemporalContext(entries[i].note, entries[j].note):
				// Complementary notes: fold j's text into i.
				entries[i].note.Text = entries[i].note.Text + "\n\n" + entries[j].note.Text
				entries[i].note.MergedFrom = append(entries[i].note.MergedFrom, entries[j].note.ID)
				entries[i].shingles = shingleSet(normalizeForCompare(entries[i].note.Text), s.cfg.ShingleSize)
				entries[j].dropped = true
				stats.MergeCount++
			}
		}
	}

	out := make([]domain.Note, 0, len(entries))
	for _, e := range entries {
		if !e.dropped {
			out = append(out, e.note)
		}
	}
	stats.FinalCount = len(out)
	return out, stats
}

func fingerprint(text string) string {
	sum := sha256.Sum256([]byte(normalizeForCompare(text)))
	return hex.EncodeToString(sum[:])
}

var compareWSRE = regexp.MustCompile(`\s+`)

func normalizeForCompare(text string) string {
	return strings.TrimSpace(compareWSRE.ReplaceAllString(strings.ToLower(text), " "))
}

func shingleSet(norm string, size int) map[string]bool {
	tokens := strings.Fields(norm)
	set := map[string]bool{}
	if len(tokens) < size {
		if len(tokens) > 0 {
			set[strings.Join(tokens, " ")] = true
		}
		return set
	}
	for i := 0; i+size <= len(tokens); i++ {
		set[strings.Join(tokens[i:i+size], " ")] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	inter := 0
	for s := range small {
		if large[s] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// isSubset: one note is a verbatim substring of the other.
func isSubset(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// survivorScore ranks which of a duplicate pair to keep: longer text, more
// recognized entities, key note-type words.
func survivorScore(n domain.Note) float64 {
	score := float64(len(n.Text)) / 1000.0
	score += float64(len(entityHintRE.FindAllString(n.Text, -1))) * 0.5
	low := strings.ToLower(n.Text + " " + n.Type)
	for _, kw := range survivorKeywords {
		if strings.Contains(low, kw) {
			score += 2
		}
	}
	return score
}

// sameTemporalContext: both notes dated the same calendar day, or neither
// dated at all.
func sameTemporalContext(a, b domain.Note) bool {
	if a.ReportedDate == nil && b.ReportedDate == nil {
		return true
	}
	if a.ReportedDate == nil || b.ReportedDate == nil {
		return false
	}
	ay, am, ad := a.ReportedDate.Date()
	by, bm, bd := b.ReportedDate.Date()
	return ay == by && am == bm && ad == bd
}
