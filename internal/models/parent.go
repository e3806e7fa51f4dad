package models

import "time"

// Languages a parent may choose for translated feedback and summaries.
const (
	LanguageEnglish = "english"
	LanguageTamil   = "tamil"
	LanguageHindi   = "hindi"
	LanguageTelugu  = "telugu"
)

// Parent represents a guardian who consumes feedback for their children.
type Parent struct {
	UserID            string          `gorm:"primaryKey;size:64" json:"user_id"`
	Name              string          `gorm:"size:255;not null" json:"name"`
	PreferredLanguage string          `gorm:"size:32;not null;default:english" json:"preferred_language"`
	NotifyEmail       bool            `gorm:"not null;default:true" json:"notify_email"`
	NotifyPush        bool            `gorm:"not null;default:true" json:"notify_push"`
	NotifyAudio       bool            `gorm:"not null;default:true" json:"notify_audio"`
	Children          []Guardianship  `gorm:"foreignKey:ParentID;references:UserID" json:"children"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Guardianship links a parent to a child student with a named relation.
type Guardianship struct {
	ParentID  string    `gorm:"primaryKey;size:64" json:"parent_id"`
	StudentID string    `gorm:"primaryKey;size:64" json:"student_id"`
	Relation  string    `gorm:"size:32" json:"relation"`
	CreatedAt time.Time `json:"created_at"`
}

// HasChild reports whether the parent is a guardian of the given student.
func (p Parent) HasChild(studentID string) bool {
	for _, child := range p.Children {
		if child.StudentID == studentID {
			return true
		}
	}
	return false
}

// ValidLanguage reports whether the language code is supported.
func ValidLanguage(language string) bool {
	switch language {
	case LanguageEnglish, LanguageTamil, LanguageHindi, LanguageTelugu:
		return true
	}
	return false
}
