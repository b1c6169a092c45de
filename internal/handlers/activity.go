package handlers

import (
	"github.com/collabify/backend/internal/middleware"
	"github.com/collabify/backend/internal/services"
	"github.com/collabify/backend/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ActivityHandler struct {
	activityService *services.ActivityLogService
}

func NewActivityHandler(db *gorm.DB) *ActivityHandler {
	return &ActivityHandler{
		activityService: services.NewActivityLogService(db),
	}
}

// List returns the caller's activity history
// GET /api/activity
func (h *ActivityHandler) List(c *gin.Context) {
	var req services.ActivityLogListRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := h.activityService.ListForUser(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}
