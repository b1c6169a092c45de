package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/collabify/backend/internal/models"
	"github.com/collabify/backend/pkg/response"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Operation names an action checked by Authorize.
type Operation string

const (
	OpReadProject     Operation = "read_project"
	OpUpdateProject   Operation = "update_project"
	OpDeleteProject   Operation = "delete_project"
	OpChangeStatus    Operation = "change_status"
	OpViewInterests   Operation = "view_interests"
	OpRespondInterest Operation = "respond_interest"
	OpRemoveMember    Operation = "remove_member"
	OpExpressInterest Operation = "express_interest"
)

const (
	msgUnauthorized        = "Unauthorized"
	msgProjectNotFound     = "Project not found"
	msgInterestNotFound    = "Interest not found"
	msgTeamMemberNotFound  = "Team member not found"
	msgUserNotFound        = "User not found"
	msgOwnProjectInterest  = "Cannot express interest in your own project"
	msgAlreadyMember       = "You are already a member of this project"
	msgPendingExists       = "You already have a pending interest in this project"
	msgAlreadyResponded    = "Interest has already been responded to"
	msgCannotRemoveCreator = "Cannot remove the project creator"
	msgTeamFull            = "Team is full"
	msgSupersededInterest  = "A newer interest from this user exists for the project"
)

// ownerOnly maps owner-restricted operations to their denial message.
var ownerOnly = map[Operation]string{
	OpUpdateProject:   "Not authorized to update this project",
	OpDeleteProject:   "Not authorized to delete this project",
	OpChangeStatus:    "Not authorized to change the status of this project",
	OpViewInterests:   "Not authorized to view interests for this project",
	OpRespondInterest: "Not authorized to respond to this interest",
	OpRemoveMember:    "Only the project owner can remove team members",
}

// Authorize decides whether callerID may perform op on project.
// It returns nil when allowed, otherwise an *response.AppError:
// 401 for anonymous callers, 404 for a missing project, 403 for non-owners,
// and 400 when a creator tries to apply to their own project.
func Authorize(callerID uint, op Operation, project *models.Project) error {
	if callerID == 0 {
		return response.NewUnauthorized(msgUnauthorized)
	}
	if project == nil {
		return response.NewNotFound(msgProjectNotFound)
	}

	switch op {
	case OpReadProject:
		return nil
	case OpExpressInterest:
		if project.IsOwnedBy(callerID) {
			return response.NewBadRequest(msgOwnProjectInterest)
		}
		return nil
	}

	msg, ok := ownerOnly[op]
	if !ok {
		return response.NewForbidden("Forbidden")
	}
	if !project.IsOwnedBy(callerID) {
		return response.NewForbidden(msg)
	}
	return nil
}

// findProject loads a project or returns a NotFound AppError.
func findProject(db *gorm.DB, id uint) (*models.Project, error) {
	var project models.Project
	if err := db.First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound(msgProjectNotFound)
		}
		return nil, fmt.Errorf("load project %d: %w", id, err)
	}
	return &project, nil
}

// forUpdate adds a row lock held until the surrounding transaction ends.
// SQLite has no row locks and serialises writers instead.
func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// lockProject loads a project and locks its row. Interest and membership writes
// for one project serialise on this lock so their read-then-write checks hold.
func lockProject(tx *gorm.DB, id uint) (*models.Project, error) {
	return findProject(forUpdate(tx), id)
}

// loadAuthorizedProject loads a project and runs Authorize for op.
func loadAuthorizedProject(ctx context.Context, db *gorm.DB, callerID, projectID uint, op Operation) (*models.Project, error) {
	if callerID == 0 {
		return nil, response.NewUnauthorized(msgUnauthorized)
	}
	project, err := findProject(db.WithContext(ctx), projectID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(callerID, op, project); err != nil {
		return nil, err
	}
	return project, nil
}

// isTeamMember reports whether userID holds a TeamMember row for projectID.
func isTeamMember(db *gorm.DB, projectID, userID uint) (bool, error) {
	var count int64
	if err := db.Model(&models.TeamMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// countMembers returns the number of TeamMember rows of a project, excluding the creator.
func countMembers(db *gorm.DB, projectID uint) (int64, error) {
	var n int64
	err := db.Model(&models.TeamMember{}).Where("project_id = ?", projectID).Count(&n).Error
	return n, err
}

// hasPendingInterest reports whether userID has a pending interest in projectID.
func hasPendingInterest(db *gorm.DB, projectID, userID uint) (bool, error) {
	var count int64
	if err := db.Model(&models.ProjectInterest{}).
		Where("project_id = ? AND user_id = ? AND status = ?", projectID, userID, models.InterestStatusPending).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// hasNewerInterest reports whether the same user has filed a later interest in the same project.
func hasNewerInterest(db *gorm.DB, interest *models.ProjectInterest) (bool, error) {
	var count int64
	if err := db.Model(&models.ProjectInterest{}).
		Where("project_id = ? AND user_id = ? AND id > ?", interest.ProjectID, interest.UserID, interest.ID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// countByProject counts rows of model grouped by project_id for the given projects.
func countByProject(db *gorm.DB, model interface{}, projectIDs []uint, extra ...interface{}) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(projectIDs))
	if len(projectIDs) == 0 {
		return counts, nil
	}

	type row struct {
		ProjectID uint
		Total     int64
	}
	var rows []row

	query := db.Model(model).
		Select("project_id, COUNT(*) AS total").
		Where("project_id IN ?", projectIDs)
	if len(extra) > 0 {
		query = query.Where(extra[0], extra[1:]...)
	}
	if err := query.Group("project_id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.ProjectID] = r.Total
	}
	return counts, nil
}
