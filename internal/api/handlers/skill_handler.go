package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/buildmate/internal/models"
	"github.com/yoockh/buildmate/internal/services"
	"github.com/yoockh/buildmate/internal/utils"
)

// JobEnqueuer queues an asynchronous generation and returns its job id.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, userID string, skillID int64) (string, error)
}

type SkillHandler struct {
	skills services.SkillService
	ideas  services.IdeaService
	jobs   JobEnqueuer // nil disables async generation
}

func NewSkillHandler(skills services.SkillService, ideas services.IdeaService, jobs JobEnqueuer) *SkillHandler {
	return &SkillHandler{skills: skills, ideas: ideas, jobs: jobs}
}

type SkillRequest struct {
	TechStack       string   `json:"tech_stack"`
	Libraries       []string `json:"libraries"`
	ExperienceLevel string   `json:"experience_level"` // Beginner|Intermediate|Advanced
	Goal            string   `json:"goal"`
	AdditionalNotes *string  `json:"additional_notes"`
}

func (r SkillRequest) toModel(userID string) *models.UserSkill {
	return &models.UserSkill{
		UserID:          userID,
		TechStack:       r.TechStack,
		Libraries:       r.Libraries,
		ExperienceLevel: r.ExperienceLevel,
		Goal:            r.Goal,
		AdditionalNotes: r.AdditionalNotes,
	}
}

type GenerateResponse struct {
	SkillID int64         `json:"skill_id"`
	Idea    *models.Idea  `json:"idea,omitempty"`
	Ideas   []models.Idea `json:"ideas,omitempty"`
}

type EnqueueResponse struct {
	JobID   string `json:"job_id"`
	SkillID int64  `json:"skill_id"`
	Status  string `json:"status"`
}

func bindSkill(c *gin.Context, op string) (SkillRequest, bool) {
	var req SkillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return req, false
	}
	return req, true
}

func (h *SkillHandler) Create(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	req, ok := bindSkill(c, "SkillHandler.Create")
	if !ok {
		return
	}

	skill := req.toModel(userID)
	if _, err := h.skills.Save(c.Request.Context(), skill); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, skill)
}

func (h *SkillHandler) Latest(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	skill, err := h.skills.Latest(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, skill)
}

func (h *SkillHandler) Delete(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	skillID, ok := int64Param(c, "SkillHandler.Delete", "skill_id")
	if !ok {
		return
	}

	if err := h.skills.Delete(c.Request.Context(), userID, skillID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SaveAndGenerate stores the submitted skill, generates ideas and keeps the first one.
func (h *SkillHandler) SaveAndGenerate(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	req, ok := bindSkill(c, "SkillHandler.SaveAndGenerate")
	if !ok {
		return
	}

	skill := req.toModel(userID)
	idea, res := h.skills.SaveAndGenerate(c.Request.Context(), skill)
	if !res.OK() {
		writeError(c, res.Err)
		return
	}
	c.JSON(http.StatusCreated, GenerateResponse{SkillID: skill.SkillID, Idea: idea})
}

// Generate returns fresh ideas for a stored skill without persisting any of them.
func (h *SkillHandler) Generate(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	skillID, ok := int64Param(c, "SkillHandler.Generate", "skill_id")
	if !ok {
		return
	}

	skill, err := h.skills.GetByID(c.Request.Context(), userID, skillID)
	if err != nil {
		writeError(c, err)
		return
	}

	res := h.ideas.Generate(c.Request.Context(), *skill)
	if !res.OK() {
		writeError(c, res.Err)
		return
	}
	c.JSON(http.StatusOK, GenerateResponse{SkillID: skillID, Ideas: res.Ideas})
}

func (h *SkillHandler) GenerateAsync(c *gin.Context) {
	const op = "SkillHandler.GenerateAsync"

	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	skillID, ok := int64Param(c, op, "skill_id")
	if !ok {
		return
	}
	if h.jobs == nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "async generation is not enabled", nil))
		return
	}

	if _, err := h.skills.GetByID(c.Request.Context(), userID, skillID); err != nil {
		writeError(c, err)
		return
	}

	jobID, err := h.jobs.Enqueue(c.Request.Context(), userID, skillID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, EnqueueResponse{JobID: jobID, SkillID: skillID, Status: models.JobQueued})
}
