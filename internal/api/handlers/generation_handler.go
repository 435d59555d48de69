package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/buildmate/internal/models"
	"github.com/yoockh/buildmate/internal/services"
	"github.com/yoockh/buildmate/internal/utils"
)

// GenerationLogHandler exposes the generation attempt log to admins.
type GenerationLogHandler struct {
	svc services.GenerationLogService
}

func NewGenerationLogHandler(svc services.GenerationLogService) *GenerationLogHandler {
	return &GenerationLogHandler{svc: svc}
}

type GenerationLogResponse struct {
	Generations []models.GenerationLog `json:"generations"`
}

// List returns the newest attempts, optionally filtered by ?user_id= and capped by ?limit=.
func (h *GenerationLogHandler) List(c *gin.Context) {
	var limit int64
	if v := c.Query("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			writeError(c, utils.E(utils.CodeInvalidArgument, "GenerationLogHandler.List", "invalid limit", err))
			return
		}
		limit = n
	}

	out, err := h.svc.ListByUser(c.Request.Context(), c.Query("user_id"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, GenerationLogResponse{Generations: out})
}
