package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/buildmate/internal/api/handlers"
	"github.com/yoockh/buildmate/internal/api/middleware"
)

type Deps struct {
	Auth        middleware.JWTConfig
	Skill       *handlers.SkillHandler
	Idea        *handlers.IdeaHandler
	Generations *handlers.GenerationLogHandler
	WS          *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth(d.Auth))

	auth.POST("/skills", d.Skill.Create)
	auth.GET("/skills/latest", d.Skill.Latest)
	auth.DELETE("/skills/:skill_id", d.Skill.Delete)
	auth.POST("/skills/generate", d.Skill.SaveAndGenerate)
	auth.POST("/skills/:skill_id/ideas/generate", d.Skill.Generate)
	auth.POST("/skills/:skill_id/ideas/generate-async", d.Skill.GenerateAsync)

	auth.POST("/ideas", d.Idea.Save)
	auth.GET("/ideas", d.Idea.List)
	auth.GET("/ideas/:idea_id", d.Idea.Get)

	// WebSocket
	auth.GET("/ws/jobs/:job_id", d.WS.JobWS)

	admin := auth.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	admin.GET("/generations", d.Generations.List)
}
