package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

const (
	ProjectStatusActive    = "active"
	ProjectStatusCompleted = "completed"
	ProjectStatusPaused    = "paused"
	ProjectStatusCancelled = "cancelled"
)

// ProjectStatuses lists every status an owner may move a project to.
var ProjectStatuses = []string{
	ProjectStatusActive,
	ProjectStatusCompleted,
	ProjectStatusPaused,
	ProjectStatusCancelled,
}

// NormalizeProjectStatus lower-cases s and maps the on-hold aliases to paused.
// The second return value is false for unknown statuses.
func NormalizeProjectStatus(s string) (string, bool) {
	status := strings.ToLower(strings.TrimSpace(s))
	switch status {
	case "on-hold", "on_hold", "onhold":
		return ProjectStatusPaused, true
	}
	for _, known := range ProjectStatuses {
		if status == known {
			return status, true
		}
	}
	return "", false
}

// Project is a listing owned exclusively by its creator.
type Project struct {
	ID                uint                        `gorm:"primaryKey" json:"id"`
	Title             string                      `gorm:"size:200;not null" json:"title"`
	Description       string                      `gorm:"type:text;not null" json:"description"`
	TechStack         datatypes.JSONSlice[string] `json:"techStack"`
	Tags              datatypes.JSONSlice[string] `json:"tags"`
	GithubURL         *string                     `gorm:"size:500" json:"githubUrl"`
	EstimatedTeamSize *int                        `json:"estimatedTeamSize"`
	Status            string                      `gorm:"size:20;default:active;index" json:"status"`
	Goals             *string                     `gorm:"type:text" json:"goals"`
	Requirements      *string                     `gorm:"type:text" json:"requirements"`
	CreatedBy         uint                        `gorm:"index;not null" json:"createdBy"`
	Creator           *User                       `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	TeamMembers       []TeamMember                `gorm:"foreignKey:ProjectID" json:"teamMembers,omitempty"`
	Interests         []ProjectInterest           `gorm:"foreignKey:ProjectID" json:"interests,omitempty"`
	CreatedAt         time.Time                   `gorm:"index" json:"createdAt"`
	UpdatedAt         time.Time                   `json:"updatedAt"`
}

func (Project) TableName() string { return "projects" }

// IsOwnedBy reports whether userID created the project.
func (p *Project) IsOwnedBy(userID uint) bool {
	return userID != 0 && p.CreatedBy == userID
}

// TeamSize counts the creator plus the given number of member rows.
func TeamSize(memberCount int64) int64 {
	return memberCount + 1
}

// HasRoomFor reports whether another member fits given the current member row count.
// A project without an estimated size never fills up.
func (p *Project) HasRoomFor(memberCount int64) bool {
	if p.EstimatedTeamSize == nil {
		return true
	}
	return TeamSize(memberCount) < int64(*p.EstimatedTeamSize)
}
