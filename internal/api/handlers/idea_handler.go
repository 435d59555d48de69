package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/buildmate/internal/ideagen"
	"github.com/yoockh/buildmate/internal/models"
	"github.com/yoockh/buildmate/internal/services"
	"github.com/yoockh/buildmate/internal/utils"
)

type IdeaHandler struct {
	svc services.IdeaService
}

func NewIdeaHandler(svc services.IdeaService) *IdeaHandler {
	return &IdeaHandler{svc: svc}
}

type SaveIdeaRequest struct {
	IdeaID        int64  `json:"idea_id"` // non-zero replaces one of the caller's ideas
	SkillID       int64  `json:"skill_id" binding:"required"`
	IdeaTitle     string `json:"idea_title"`
	Description   string `json:"description"`
	Difficulty    string `json:"difficulty"`
	TechUsed      string `json:"tech_used"`
	LearningFocus string `json:"learning_focus"`
}

type IdeaListResponse struct {
	Ideas []models.Idea `json:"ideas"`
}

func (h *IdeaHandler) Save(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req SaveIdeaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "IdeaHandler.Save", "invalid request body", err))
		return
	}

	idea := &models.Idea{
		IdeaID:        req.IdeaID,
		UserID:        userID,
		SkillID:       req.SkillID,
		IdeaTitle:     strings.TrimSpace(req.IdeaTitle),
		Description:   strings.TrimSpace(req.Description),
		Difficulty:    ideagen.NormalizeDifficulty(req.Difficulty),
		TechUsed:      strings.TrimSpace(req.TechUsed),
		LearningFocus: strings.TrimSpace(req.LearningFocus),
	}
	if _, err := h.svc.Save(c.Request.Context(), idea); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, idea)
}

func (h *IdeaHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, IdeaListResponse{Ideas: h.svc.ListByUser(c.Request.Context(), userID)})
}

func (h *IdeaHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	ideaID, ok := int64Param(c, "IdeaHandler.Get", "idea_id")
	if !ok {
		return
	}

	rows := h.svc.GetByID(c.Request.Context(), userID, ideaID)
	if len(rows) == 0 {
		writeError(c, utils.E(utils.CodeNotFound, "IdeaHandler.Get", "idea not found", nil))
		return
	}
	c.JSON(http.StatusOK, rows[0])
}
