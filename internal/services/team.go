package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/collabify/backend/internal/metrics"
	"github.com/collabify/backend/internal/models"
	"github.com/collabify/backend/pkg/response"
	"gorm.io/gorm"
)

type TeamService struct {
	db *gorm.DB
}

func NewTeamService(db *gorm.DB) *TeamService {
	return &TeamService{db: db}
}

// RemovedMember identifies a member that was taken off a team.
type RemovedMember struct {
	ID       uint   `json:"id"`
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
}

// List returns the members of a project ordered by join time
func (s *TeamService) List(ctx context.Context, callerID, projectID uint) ([]models.TeamMember, error) {
	if _, err := loadAuthorizedProject(ctx, s.db, callerID, projectID, OpReadProject); err != nil {
		return nil, err
	}

	members := []models.TeamMember{}
	if err := s.db.WithContext(ctx).
		Preload("User", models.SelectUserSummary).
		Where("project_id = ?", projectID).
		Order("joined_at ASC").Order("id ASC").
		Find(&members).Error; err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	return members, nil
}

// Remove deletes a member row and marks the member's most recent accepted interest as removed.
// Only the owner may remove members and the creator can never be removed.
func (s *TeamService) Remove(ctx context.Context, callerID, projectID, memberID uint) (*RemovedMember, error) {
	if callerID == 0 {
		return nil, response.NewUnauthorized(msgUnauthorized)
	}

	var (
		removed       RemovedMember
		interestMoved bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := lockProject(tx, projectID)
		if err != nil {
			return err
		}
		if err := Authorize(callerID, OpRemoveMember, project); err != nil {
			return err
		}

		var member models.TeamMember
		if err := tx.Preload("User", models.SelectUserSummary).
			Where("id = ? AND project_id = ?", memberID, projectID).
			First(&member).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.NewNotFound(msgTeamMemberNotFound)
			}
			return fmt.Errorf("load team member %d: %w", memberID, err)
		}
		if member.UserID == project.CreatedBy {
			return response.NewBadRequest(msgCannotRemoveCreator)
		}

		if err := tx.Delete(&member).Error; err != nil {
			return fmt.Errorf("delete team member: %w", err)
		}

		var interest models.ProjectInterest
		err = tx.Where("project_id = ? AND user_id = ? AND status = ?", projectID, member.UserID, models.InterestStatusAccepted).
			Order("created_at DESC").Order("id DESC").
			First(&interest).Error
		switch {
		case err == nil:
			if err := tx.Model(&interest).Update("status", models.InterestStatusRemoved).Error; err != nil {
				return fmt.Errorf("mark interest removed: %w", err)
			}
			interestMoved = true
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("load accepted interest: %w", err)
		}

		removed = RemovedMember{ID: member.ID, UserID: member.UserID}
		if member.User != nil {
			removed.Username = member.User.HandleOrEmpty()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTeamMemberEvent("removed")
	if interestMoved {
		metrics.RecordInterestTransition(models.InterestStatusRemoved)
	}
	LogInfo("Team", "Remove", fmt.Sprintf("Removed %s from project %d", removed.Username, projectID), &callerID, "", "",
		map[string]uint{"projectId": projectID, "memberId": removed.ID, "userId": removed.UserID})
	return &removed, nil
}
