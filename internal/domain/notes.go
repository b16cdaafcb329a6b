package domain

import "time"

// NoteInput is one raw clinical note as submitted by the caller.
type NoteInput struct {
	Text         string     `json:"text"`
	Type         string     `json:"type,omitempty"` // operative|progress|discharge|consult|...
	ReportedDate *time.Time `json:"reported_date,omitempty"`
}

// Note is a normalized, deduplicated note flowing through the pipeline.
type Note struct {
	ID           string     `json:"id"`
	Text         string     `json:"text"`
	Type         string     `json:"type,omitempty"`
	ReportedDate *time.Time `json:"reported_date,omitempty"`
	// MergedFrom lists note IDs folded into this one by the
	// complementary-merge path of note deduplication.
	MergedFrom []string `json:"merged_from,omitempty"`
}

// NoteDedupStats summarizes the note-level deduplication pass.
type NoteDedupStats struct {
	OriginalCount int `json:"original_count"`
	FinalCount    int `json:"final_count"`
	ExactRemoved  int `json:"exact_removed"`
	NearRemoved   int `json:"near_removed"`
	MergeCount    int `json:"merge_count"`
}
