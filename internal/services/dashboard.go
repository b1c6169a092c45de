package services

import (
	"context"
	"fmt"

	"github.com/collabify/backend/internal/models"
	"gorm.io/gorm"
)

type DashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

type DashboardStats struct {
	ProjectsCreated         int   `json:"projectsCreated"`
	ProjectsJoined          int   `json:"projectsJoined"`
	PendingInterests        int   `json:"pendingInterests"`
	IncomingPendingRequests int64 `json:"incomingPendingRequests"`
}

type Dashboard struct {
	User             *models.User             `json:"user"`
	Stats            DashboardStats           `json:"stats"`
	CreatedProjects  []ProjectListItem        `json:"createdProjects"`
	JoinedProjects   []ProjectListItem        `json:"joinedProjects"`
	PendingInterests []models.ProjectInterest `json:"pendingInterests"`
}

// Get aggregates what the signed-in user sees on their dashboard
func (s *DashboardService) Get(ctx context.Context, userID uint) (*Dashboard, error) {
	user, err := NewUserService(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	var created []models.Project
	if err := db.Where("created_by = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&created).Error; err != nil {
		return nil, fmt.Errorf("load created projects: %w", err)
	}

	var memberships []models.TeamMember
	if err := db.Preload("Project").
		Preload("Project.Creator", models.SelectUserSummary).
		Where("user_id = ?", userID).
		Order("joined_at DESC").Order("id DESC").
		Find(&memberships).Error; err != nil {
		return nil, fmt.Errorf("load memberships: %w", err)
	}
	joined := make([]models.Project, 0, len(memberships))
	for _, m := range memberships {
		if m.Project != nil {
			joined = append(joined, *m.Project)
		}
	}

	pending := []models.ProjectInterest{}
	if err := db.Preload("Project").
		Preload("Project.Creator", models.SelectUserSummary).
		Where("user_id = ? AND status = ?", userID, models.InterestStatusPending).
		Order("created_at DESC").Order("id DESC").
		Find(&pending).Error; err != nil {
		return nil, fmt.Errorf("load pending interests: %w", err)
	}

	var incoming int64
	if err := db.Model(&models.ProjectInterest{}).
		Joins("JOIN projects ON projects.id = project_interests.project_id").
		Where("projects.created_by = ? AND project_interests.status = ?", userID, models.InterestStatusPending).
		Count(&incoming).Error; err != nil {
		return nil, fmt.Errorf("count incoming interests: %w", err)
	}

	createdItems, err := withCounts(db, created)
	if err != nil {
		return nil, err
	}
	joinedItems, err := withCounts(db, joined)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		User: user,
		Stats: DashboardStats{
			ProjectsCreated:         len(createdItems),
			ProjectsJoined:          len(joinedItems),
			PendingInterests:        len(pending),
			IncomingPendingRequests: incoming,
		},
		CreatedProjects:  createdItems,
		JoinedProjects:   joinedItems,
		PendingInterests: pending,
	}, nil
}
