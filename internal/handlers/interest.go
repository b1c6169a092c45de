package handlers

import (
	"github.com/collabify/backend/internal/middleware"
	"github.com/collabify/backend/internal/services"
	"github.com/collabify/backend/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type InterestHandler struct {
	interestService *services.InterestService
}

func NewInterestHandler(db *gorm.DB) *InterestHandler {
	return &InterestHandler{
		interestService: services.NewInterestService(db),
	}
}

// Create expresses the caller's interest in a project
// POST /api/projects/interest
func (h *InterestHandler) Create(c *gin.Context) {
	var req services.CreateInterestRequest
	if !bindJSON(c, &req) {
		return
	}

	interest, err := h.interestService.Create(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"interest": interest})
}

// ListForProject returns the interests in one project for its owner
// GET /api/projects/interest?projectId=&status=
func (h *InterestHandler) ListForProject(c *gin.Context) {
	projectID, ok := parseID(c.Query("projectId"))
	if !ok {
		response.BadRequest(c, "Project ID is required")
		return
	}

	interests, err := h.interestService.ListForProject(c.Request.Context(), middleware.GetUserID(c), projectID, c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"interests": interests})
}

// UpdateStatus moves an interest to accepted, rejected or removed
// PATCH /api/projects/interest
func (h *InterestHandler) UpdateStatus(c *gin.Context) {
	var req services.UpdateInterestStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	interest, err := h.interestService.UpdateStatus(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"interest": interest})
}

// Respond accepts or rejects a pending interest
// POST /api/projects/interest/response
func (h *InterestHandler) Respond(c *gin.Context) {
	var req services.RespondInterestRequest
	if !bindJSON(c, &req) {
		return
	}

	interest, err := h.interestService.Respond(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{
		"interest": interest,
		"message":  "Interest " + interest.Status,
	})
}

// ListMine returns the caller's own interests
// GET /api/interests/mine
func (h *InterestHandler) ListMine(c *gin.Context) {
	interests, err := h.interestService.ListMine(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"interests": interests})
}
