package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/collabify/backend/internal/metrics"
	"github.com/collabify/backend/internal/models"
	"github.com/collabify/backend/pkg/response"
	"gorm.io/gorm"
)

const maxInterestMessageLength = 1000

const (
	InterestActionAccept = "accept"
	InterestActionReject = "reject"
)

// InterestService drives the pending -> accepted|rejected, accepted -> removed lifecycle.
type InterestService struct {
	db *gorm.DB
}

func NewInterestService(db *gorm.DB) *InterestService {
	return &InterestService{db: db}
}

type CreateInterestRequest struct {
	ProjectID uint   `json:"projectId" binding:"required"`
	Message   string `json:"message"`
}

type RespondInterestRequest struct {
	InterestID uint   `json:"interestId" binding:"required"`
	Action     string `json:"action" binding:"required,oneof=accept reject"`
}

type UpdateInterestStatusRequest struct {
	InterestID uint   `json:"interestId" binding:"required"`
	Status     string `json:"status" binding:"required,oneof=accepted rejected removed"`
}

// Create records a pending interest from userID in a project
func (s *InterestService) Create(ctx context.Context, userID uint, req *CreateInterestRequest) (*models.ProjectInterest, error) {
	if userID == 0 {
		return nil, response.NewUnauthorized(msgUnauthorized)
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, response.NewBadRequest("Message is required")
	}
	if utf8.RuneCountInString(message) > maxInterestMessageLength {
		return nil, response.NewBadRequest("Message must be at most 1000 characters")
	}

	interest := models.ProjectInterest{
		ProjectID: req.ProjectID,
		UserID:    userID,
		Message:   message,
		Status:    models.InterestStatusPending,
	}

	var project *models.Project
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		project, err = lockProject(tx, req.ProjectID)
		if err != nil {
			return err
		}
		if err := Authorize(userID, OpExpressInterest, project); err != nil {
			return err
		}

		member, err := isTeamMember(tx, project.ID, userID)
		if err != nil {
			return fmt.Errorf("check membership: %w", err)
		}
		if member {
			return response.NewBadRequest(msgAlreadyMember)
		}

		pending, err := hasPendingInterest(tx, project.ID, userID)
		if err != nil {
			return fmt.Errorf("check pending interest: %w", err)
		}
		if pending {
			return response.NewBadRequest(msgPendingExists)
		}

		if err := tx.Create(&interest).Error; err != nil {
			return fmt.Errorf("create interest: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).
		Preload("User", models.SelectUserSummary).
		First(&interest, interest.ID).Error; err != nil {
		return nil, fmt.Errorf("reload interest: %w", err)
	}

	metrics.RecordInterestTransition(models.InterestStatusPending)
	LogInfo("Interest", "Create", fmt.Sprintf("Interest in project %q submitted", project.Title), &userID, "", "",
		map[string]uint{"projectId": project.ID, "interestId": interest.ID})
	return &interest, nil
}

// ListForProject returns the interests in a project for its owner, newest first.
// status optionally narrows the result to one lifecycle state.
func (s *InterestService) ListForProject(ctx context.Context, callerID, projectID uint, status string) ([]models.ProjectInterest, error) {
	if status != "" && !models.IsValidInterestStatus(status) {
		return nil, response.NewBadRequest("Invalid status")
	}
	if _, err := loadAuthorizedProject(ctx, s.db, callerID, projectID, OpViewInterests); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).
		Preload("User", models.SelectUserSummary).
		Where("project_id = ?", projectID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	interests := []models.ProjectInterest{}
	if err := query.Order("created_at DESC").Order("id DESC").Find(&interests).Error; err != nil {
		return nil, fmt.Errorf("list interests: %w", err)
	}
	return interests, nil
}

// ListMine returns the caller's own interests with a summary of each project
func (s *InterestService) ListMine(ctx context.Context, userID uint) ([]models.ProjectInterest, error) {
	if userID == 0 {
		return nil, response.NewUnauthorized(msgUnauthorized)
	}

	interests := []models.ProjectInterest{}
	if err := s.db.WithContext(ctx).
		Preload("Project").
		Preload("Project.Creator", models.SelectUserSummary).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&interests).Error; err != nil {
		return nil, fmt.Errorf("list own interests: %w", err)
	}
	return interests, nil
}

// findInterest loads an interest together with its project.
func findInterest(tx *gorm.DB, id uint) (*models.ProjectInterest, error) {
	var interest models.ProjectInterest
	if err := tx.Preload("Project").First(&interest, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound(msgInterestNotFound)
		}
		return nil, fmt.Errorf("load interest %d: %w", id, err)
	}
	if interest.Project == nil {
		return nil, response.NewNotFound(msgProjectNotFound)
	}
	return &interest, nil
}

// lockInterest loads an interest, locks its project row and re-reads the interest
// under that lock so a concurrent response to it is observed.
func lockInterest(tx *gorm.DB, id uint) (*models.ProjectInterest, error) {
	interest, err := findInterest(tx, id)
	if err != nil {
		return nil, err
	}
	project, err := lockProject(tx, interest.ProjectID)
	if err != nil {
		return nil, err
	}

	var current models.ProjectInterest
	if err := tx.First(&current, id).Error; err != nil {
		return nil, fmt.Errorf("reload interest %d: %w", id, err)
	}
	current.Project = project
	return &current, nil
}

// addTeamMember makes userID a member of project. It is a no-op when the row exists
// and fails with 409 when the team has no room left.
func addTeamMember(tx *gorm.DB, project *models.Project, userID uint) (bool, error) {
	member, err := isTeamMember(tx, project.ID, userID)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	if member {
		return false, nil
	}

	count, err := countMembers(tx, project.ID)
	if err != nil {
		return false, fmt.Errorf("count team members: %w", err)
	}
	if !project.HasRoomFor(count) {
		return false, response.NewConflict(msgTeamFull)
	}

	row := models.TeamMember{ProjectID: project.ID, UserID: userID, Role: models.TeamRoleMember}
	if err := tx.Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, fmt.Errorf("create team member: %w", err)
	}
	return true, nil
}

// removeTeamMember deletes the membership row for the pair, if any.
func removeTeamMember(tx *gorm.DB, projectID, userID uint) (bool, error) {
	result := tx.Where("project_id = ? AND user_id = ?", projectID, userID).Delete(&models.TeamMember{})
	if result.Error != nil {
		return false, fmt.Errorf("delete team member: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Respond accepts or rejects a pending interest. Accepting adds the applicant to the team
// in the same transaction.
func (s *InterestService) Respond(ctx context.Context, callerID uint, req *RespondInterestRequest) (*models.ProjectInterest, error) {
	if callerID == 0 {
		return nil, response.NewUnauthorized(msgUnauthorized)
	}

	var newStatus string
	switch req.Action {
	case InterestActionAccept:
		newStatus = models.InterestStatusAccepted
	case InterestActionReject:
		newStatus = models.InterestStatusRejected
	default:
		return nil, response.NewBadRequest("Invalid action")
	}

	var (
		interest *models.ProjectInterest
		added    bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		interest, err = lockInterest(tx, req.InterestID)
		if err != nil {
			return err
		}
		if err := Authorize(callerID, OpRespondInterest, interest.Project); err != nil {
			return err
		}
		if interest.Status != models.InterestStatusPending {
			return response.NewBadRequest(msgAlreadyResponded)
		}

		if newStatus == models.InterestStatusAccepted {
			if added, err = addTeamMember(tx, interest.Project, interest.UserID); err != nil {
				return err
			}
		}
		return tx.Model(interest).Update("status", newStatus).Error
	})
	if err != nil {
		return nil, err
	}

	recordInterestChange(callerID, interest, newStatus, added, false)
	return s.reload(ctx, interest.ID)
}

// UpdateStatus lets the owner move an interest to accepted, rejected or removed,
// keeping the team membership consistent with the new status.
func (s *InterestService) UpdateStatus(ctx context.Context, callerID uint, req *UpdateInterestStatusRequest) (*models.ProjectInterest, error) {
	if callerID == 0 {
		return nil, response.NewUnauthorized(msgUnauthorized)
	}
	switch req.Status {
	case models.InterestStatusAccepted, models.InterestStatusRejected, models.InterestStatusRemoved:
	default:
		return nil, response.NewBadRequest("Invalid status")
	}

	var (
		interest       *models.ProjectInterest
		added, removed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		interest, err = lockInterest(tx, req.InterestID)
		if err != nil {
			return err
		}
		if err := Authorize(callerID, OpRespondInterest, interest.Project); err != nil {
			return err
		}

		// Only the latest interest of a user speaks for their membership
		newer, err := hasNewerInterest(tx, interest)
		if err != nil {
			return fmt.Errorf("check newer interest: %w", err)
		}
		if newer {
			return response.NewBadRequest(msgSupersededInterest)
		}

		if req.Status == models.InterestStatusAccepted {
			if added, err = addTeamMember(tx, interest.Project, interest.UserID); err != nil {
				return err
			}
			if err := tx.Model(&models.ProjectInterest{}).
				Where("project_id = ? AND user_id = ? AND id <> ? AND status = ?",
					interest.ProjectID, interest.UserID, interest.ID, models.InterestStatusPending).
				Update("status", models.InterestStatusRejected).Error; err != nil {
				return fmt.Errorf("settle pending interests: %w", err)
			}
		} else {
			if removed, err = removeTeamMember(tx, interest.ProjectID, interest.UserID); err != nil {
				return err
			}
		}
		return tx.Model(interest).Update("status", req.Status).Error
	})
	if err != nil {
		return nil, err
	}

	recordInterestChange(callerID, interest, req.Status, added, removed)
	return s.reload(ctx, interest.ID)
}

func (s *InterestService) reload(ctx context.Context, id uint) (*models.ProjectInterest, error) {
	var interest models.ProjectInterest
	if err := s.db.WithContext(ctx).
		Preload("User", models.SelectUserSummary).
		Preload("Project").
		First(&interest, id).Error; err != nil {
		return nil, fmt.Errorf("reload interest %d: %w", id, err)
	}
	return &interest, nil
}

func recordInterestChange(callerID uint, interest *models.ProjectInterest, status string, added, removed bool) {
	metrics.RecordInterestTransition(status)
	if added {
		metrics.RecordTeamMemberEvent("added")
	}
	if removed {
		metrics.RecordTeamMemberEvent("removed")
	}
	LogInfo("Interest", "UpdateStatus", fmt.Sprintf("Interest %d marked %s", interest.ID, status), &callerID, "", "",
		map[string]interface{}{"projectId": interest.ProjectID, "applicantId": interest.UserID, "status": status})
}
