package models

import "time"

const (
	InterestStatusPending  = "pending"
	InterestStatusAccepted = "accepted"
	InterestStatusRejected = "rejected"
	InterestStatusRemoved  = "removed"
)

// IsValidInterestStatus reports whether s is one of the four lifecycle states.
func IsValidInterestStatus(s string) bool {
	switch s {
	case InterestStatusPending, InterestStatusAccepted, InterestStatusRejected, InterestStatusRemoved:
		return true
	}
	return false
}

// ProjectInterest is an application to join a project. Rows are kept as history,
// so several may exist per (project, user) but only one may be pending.
type ProjectInterest struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"index:idx_interest_project_user;not null" json:"projectId"`
	Project   *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	UserID    uint      `gorm:"index:idx_interest_project_user;index;not null" json:"userId"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Status    string    `gorm:"size:20;default:pending;index" json:"status"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (ProjectInterest) TableName() string { return "project_interests" }
