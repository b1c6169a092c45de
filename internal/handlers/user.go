package handlers

import (
	"github.com/collabify/backend/internal/middleware"
	"github.com/collabify/backend/internal/services"
	"github.com/collabify/backend/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{userService: services.NewUserService(db)}
}

// CheckUsername reports whether a username can still be claimed
// POST /api/user/check-username
func (h *UserHandler) CheckUsername(c *gin.Context) {
	var req services.CheckUsernameRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.CheckUsername(c.Request.Context(), req.Username); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"available": true})
}

// GetOnboarding returns whether the caller has finished onboarding
// GET /api/user/onboarding
func (h *UserHandler) GetOnboarding(c *gin.Context) {
	state, err := h.userService.OnboardingState(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, state)
}

// Onboard claims a username and fills in the initial profile
// POST /api/user/onboarding
func (h *UserHandler) Onboard(c *gin.Context) {
	var req services.OnboardingRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.Onboard(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"user": user})
}

// GetProfile returns the caller's own profile
// GET /api/user/profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, err := h.userService.GetByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, user)
}

// EditProfile updates the caller's profile fields
// PUT /api/user/profile/edit
func (h *UserHandler) EditProfile(c *gin.Context) {
	var req services.EditProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.EditProfile(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{
		"message": "Profile updated successfully",
		"user":    user,
	})
}

// PublicProfile returns another user's profile by username
// GET /api/users/:username
func (h *UserHandler) PublicProfile(c *gin.Context) {
	profile, err := h.userService.PublicProfile(c.Request.Context(), c.Param("username"), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, profile)
}
