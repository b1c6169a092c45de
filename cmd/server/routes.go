package main

import (
	"github.com/collabify/backend/internal/handlers"
	"github.com/collabify/backend/internal/metrics"
	"github.com/collabify/backend/internal/middleware"
	"github.com/collabify/backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	cookie := svc.cfg.JWT.CookieName

	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery(), metrics.GinMiddleware())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(svc.cfg.CORS.AllowOrigins))

	healthHandler := handlers.NewHealthHandler(svc.db)
	r.GET("/health", healthHandler.CheckHealth)
	r.GET("/metrics", handlers.Metrics())

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth", svc.authLimiter.Middleware())
		{
			auth.GET("/google/login", svc.authHandler.GoogleLogin)
			auth.GET("/google/callback", svc.authHandler.GoogleCallback)
		}

		userHandler := handlers.NewUserHandler(svc.db)

		// Public profile, the viewer is optional
		api.GET("/users/:username", middleware.OptionalAuth(cookie), userHandler.PublicProfile)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired(cookie), middleware.AuditLog())
		{
			// Auth
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.POST("/auth/logout", svc.authHandler.Logout)

			// Dashboard
			dashboardHandler := handlers.NewDashboardHandler(svc.db)
			protected.GET("/dashboard", dashboardHandler.Get)

			// Activity
			activityHandler := handlers.NewActivityHandler(svc.db)
			protected.GET("/activity", activityHandler.List)

			// Projects
			projectHandler := handlers.NewProjectHandler(svc.db)
			protected.GET("/projects", projectHandler.List)
			protected.POST("/projects", projectHandler.Create)
			protected.GET("/projects/my-projects", projectHandler.ListMine)
			protected.PATCH("/projects/update-status", projectHandler.UpdateStatus)
			protected.GET("/projects/:id", projectHandler.Get)
			protected.PUT("/projects/:id", projectHandler.Update)
			protected.DELETE("/projects/:id", projectHandler.Delete)

			// Interests
			interestHandler := handlers.NewInterestHandler(svc.db)
			protected.POST("/projects/interest", svc.interestLimiter.Middleware(), interestHandler.Create)
			protected.GET("/projects/interest", interestHandler.ListForProject)
			protected.PATCH("/projects/interest", interestHandler.UpdateStatus)
			protected.POST("/projects/interest/response", interestHandler.Respond)
			protected.GET("/interests/mine", interestHandler.ListMine)

			// Team members
			teamHandler := handlers.NewTeamMemberHandler(svc.db)
			protected.GET("/projects/:id/team-members", teamHandler.List)
			protected.DELETE("/projects/:id/team-members/:memberId", teamHandler.Remove)

			// User
			protected.POST("/user/check-username", userHandler.CheckUsername)
			protected.GET("/user/onboarding", userHandler.GetOnboarding)
			protected.POST("/user/onboarding", userHandler.Onboard)
			protected.GET("/user/profile", userHandler.GetProfile)
			protected.PUT("/user/profile/edit", userHandler.EditProfile)
			protected.POST("/user/profile/edit", userHandler.EditProfile)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"error": "Not found"})
	})
}
