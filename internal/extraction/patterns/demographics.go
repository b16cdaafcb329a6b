package patterns

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/yungbote/clinrecord-backend/internal/domain"
)

var (
	nameLabelRE = regexp.MustCompile(`(?im)^\s*(?:patient(?:\s+name)?|name)\s*:\s*([A-Z][A-Za-z'-]+(?:,?\s+[A-Z][A-Za-z'-]+){0,3})\s*$`)
	mrnRE       = regexp.MustCompile(`(?i)\bMRN\s*[:#]?\s*(\d{5,12})\b`)
	ageYoRE     = regexp.MustCompile(`(?i)\b(\d{1,3})[\s-]*(?:year[\s-]*old|y/?o)\b`)
	ageLabelRE  = regexp.MustCompile(`(?im)^\s*age\s*:\s*(\d{1,3})\s*$`)
	sexWordRE   = regexp.MustCompile(`(?i)\b(male|female|man|woman|gentleman|lady)\b`)
	sexLabelRE  = regexp.MustCompile(`(?im)^\s*(?:sex|gender)\s*:\s*(male|female|m|f)\s*$`)
)

func (s *Service) extractDemographics(notes []domain.Note, rec *domain.ExtractedRecord) {
	var nameHits, mrnHits, ageHits, sexHits int

	for _, note := range notes {
		if m := nameLabelRE.FindStringSubmatch(note.Text); m != nil {
			if rec.Demographics.Name.IsZero() {
				rec.Demographics.Name = domain.StringField{Value: strings.TrimSpace(m[1]), Confidence: 0.9, Source: domain.SourcePattern}
			}
			nameHits++
		}
		if m := mrnRE.FindStringSubmatch(note.Text); m != nil {
			if rec.Demographics.MRN.IsZero() {
				rec.Demographics.MRN = domain.StringField{Value: m[1], Confidence: 0.95, Source: domain.SourcePattern}
			}
			mrnHits++
		}
		if m := ageLabelRE.FindStringSubmatch(note.Text); m != nil {
			s.setAge(rec, m[1], 0.9)
			ageHits++
		} else if m := ageYoRE.FindStringSubmatch(note.Text); m != nil {
			s.setAge(rec, m[1], 0.85)
			ageHits++
		}
		if m := sexLabelRE.FindStringSubmatch(note.Text); m != nil {
			s.setSex(rec, m[1], 0.9)
			sexHits++
		} else if m := sexWordRE.FindStringSubmatch(note.Text); m != nil {
			s.setSex(rec, m[1], 0.75)
			sexHits++
		}
	}

	corroborate := func(f *domain.StringField, hits int) {
		if !f.IsZero() && hits > 1 {
			f.Confidence = AdjustConfidence(f.Confidence, hits-1, false, nil)
		}
	}
	corroborate(&rec.Demographics.Name, nameHits)
	corroborate(&rec.Demographics.MRN, mrnHits)
	corroborate(&rec.Demographics.Sex, sexHits)
	if rec.Demographics.Age.Present && ageHits > 1 {
		rec.Demographics.Age.Confidence = AdjustConfidence(rec.Demographics.Age.Confidence, ageHits-1, false, nil)
	}
}

func (s *Service) setAge(rec *domain.ExtractedRecord, raw string, conf float64) {
	if rec.Demographics.Age.Present {
		return
	}
	age, err := strconv.Atoi(raw)
	if err != nil || age <= 0 || age > 130 {
		return
	}
	rec.Demographics.Age = domain.IntField{Value: age, Present: true, Confidence: conf, Source: domain.SourcePattern}
}

func (s *Service) setSex(rec *domain.ExtractedRecord, raw string, conf float64) {
	if !rec.Demographics.Sex.IsZero() {
		return
	}
	var sex string
	switch strings.ToLower(raw) {
	case "male", "man", "gentleman", "m":
		sex = "male"
	case "female", "woman", "lady", "f":
		sex = "female"
	default:
		return
	}
	rec.Demographics.Sex = domain.StringField{Value: sex, Confidence: conf, Source: domain.SourcePattern}
}
