package models

import "time"

// Kinds of derived artifacts cached by the narration/translation pipeline.
const (
	ArtifactKindTranslation = "translation"
	ArtifactKindAudio       = "audio"
)

// DerivedArtifact caches a translation or narration keyed by the source
// content hash and target language. Entries expire after a retention window
// and are purged by a periodic sweep.
type DerivedArtifact struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	SubmissionID    string    `gorm:"size:36;index" json:"submission_id"`
	Kind            string    `gorm:"size:16;not null;uniqueIndex:idx_artifact_key" json:"kind"`
	Language        string    `gorm:"size:32;not null;uniqueIndex:idx_artifact_key" json:"language"`
	ContentHash     string    `gorm:"size:64;not null;uniqueIndex:idx_artifact_key" json:"content_hash"`
	Text            string    `gorm:"type:text" json:"text"`
	AudioRef        string    `gorm:"size:512" json:"audio_ref"`
	DurationSeconds float64   `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `gorm:"index;not null" json:"expires_at"`
}

// Expired reports whether the artifact is past its retention window.
func (a DerivedArtifact) Expired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}
