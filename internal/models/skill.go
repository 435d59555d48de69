package models

import (
	"time"

	"gorm.io/datatypes"
)

// UserSkill is one snapshot of the capabilities a user declared on the skill form.
type UserSkill struct {
	SkillID         int64                       `gorm:"column:skill_id;primaryKey;autoIncrement" json:"skill_id"`
	UserID          string                      `gorm:"column:user_id;type:text;index;not null" json:"user_id"`
	TechStack       string                      `gorm:"column:tech_stack;type:text" json:"tech_stack"`
	Libraries       datatypes.JSONSlice[string] `gorm:"column:libraries" json:"libraries"`
	ExperienceLevel string                      `gorm:"column:experience_level;type:text" json:"experience_level"` // Beginner|Intermediate|Advanced
	Goal            string                      `gorm:"column:goal;type:text" json:"goal"`
	AdditionalNotes *string                     `gorm:"column:additional_notes;type:text" json:"additional_notes,omitempty"`
	CreatedAt       time.Time                   `gorm:"column:created_at" json:"created_at"`

	Ideas []Idea `gorm:"foreignKey:SkillID;references:SkillID;constraint:OnDelete:CASCADE" json:"-"`
}

func (UserSkill) TableName() string { return "user_skills" }
