package dto

// NarrationRequest asks for feedback in a given language, spoken or
// translated.
type NarrationRequest struct {
	Language string `json:"language" validate:"required,oneof=english tamil hindi telugu"`
	VoiceID  string `json:"voice_id" validate:"omitempty,max=64"`
}

// TranslationResponse returns translated feedback for a submission.
type TranslationResponse struct {
	SubmissionID   string `json:"submission_id"`
	Language       string `json:"language"`
	TranslatedText string `json:"translated_text"`
	Cached         bool   `json:"cached"`
}

// NarrationResponse returns an audio artifact reference for a submission's
// feedback.
type NarrationResponse struct {
	SubmissionID    string  `json:"submission_id"`
	Language        string  `json:"language"`
	AudioRef        string  `json:"audio_ref"`
	DurationSeconds float64 `json:"duration_seconds"`
	Cached          bool    `json:"cached"`
}
