package models

import "time"

const (
	DifficultyEasy         = "Easy"
	DifficultyIntermediate = "Intermediate"
	DifficultyHard         = "Hard"
)

// Idea is one generated project idea. Ideas are deleted together with the skill that produced them.
type Idea struct {
	IdeaID        int64     `gorm:"column:idea_id;primaryKey;autoIncrement" json:"idea_id"`
	UserID        string    `gorm:"column:user_id;type:text;index;not null" json:"user_id"`
	SkillID       int64     `gorm:"column:skill_id;index;not null" json:"skill_id"`
	IdeaTitle     string    `gorm:"column:idea_title;type:text" json:"idea_title"`
	Description   string    `gorm:"column:description;type:text" json:"description"`
	Difficulty    string    `gorm:"column:difficulty;type:text" json:"difficulty"` // Easy|Intermediate|Hard
	TechUsed      string    `gorm:"column:tech_used;type:text" json:"tech_used"`
	LearningFocus string    `gorm:"column:learning_focus;type:text" json:"learning_focus"`
	CreatedAt     time.Time `gorm:"column:created_at;index" json:"created_at"`
}

func (Idea) TableName() string { return "ideas" }
