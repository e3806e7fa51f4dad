package models

import (
	"time"

	"gorm.io/datatypes"
)

// Student represents a learner whose work flows through the pipeline.
// Submissions are linked by StudentID; chronological order is CreatedAt order.
type Student struct {
	UserID    string                      `gorm:"primaryKey;size:64" json:"user_id"`
	Name      string                      `gorm:"size:255;not null" json:"name"`
	Grade     string                      `gorm:"size:32;not null" json:"grade"`
	Subjects  datatypes.JSONSlice[string] `json:"subjects"`
	CreatedAt time.Time                   `json:"created_at"`
	UpdatedAt time.Time                   `json:"updated_at"`
}
