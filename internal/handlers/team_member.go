package handlers

import (
	"github.com/collabify/backend/internal/middleware"
	"github.com/collabify/backend/internal/services"
	"github.com/collabify/backend/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type TeamMemberHandler struct {
	teamService *services.TeamService
}

func NewTeamMemberHandler(db *gorm.DB) *TeamMemberHandler {
	return &TeamMemberHandler{
		teamService: services.NewTeamService(db),
	}
}

// List returns the members of a project
// GET /api/projects/:id/team-members
func (h *TeamMemberHandler) List(c *gin.Context) {
	projectID, ok := parseID(c.Param("id"))
	if !ok {
		response.BadRequest(c, "Invalid project id")
		return
	}

	members, err := h.teamService.List(c.Request.Context(), middleware.GetUserID(c), projectID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"members": members})
}

// Remove takes a member off the team
// DELETE /api/projects/:id/team-members/:memberId
func (h *TeamMemberHandler) Remove(c *gin.Context) {
	projectID, ok := parseID(c.Param("id"))
	if !ok {
		response.BadRequest(c, "Invalid project id")
		return
	}
	memberID, ok := parseID(c.Param("memberId"))
	if !ok {
		response.BadRequest(c, "Invalid team member id")
		return
	}

	removed, err := h.teamService.Remove(c.Request.Context(), middleware.GetUserID(c), projectID, memberID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{
		"message":       "Team member removed successfully",
		"removedMember": removed,
	})
}
