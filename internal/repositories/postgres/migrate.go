package postgres

import (
	"github.com/yoockh/buildmate/internal/models"
	"gorm.io/gorm"
)

// AutoMigrate creates or updates the user_skills and ideas tables, including the
// ideas.skill_id foreign key with ON DELETE CASCADE.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.UserSkill{}, &models.Idea{})
}
