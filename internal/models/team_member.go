package models

import "time"

const TeamRoleMember = "member"

// TeamMember is an accepted collaborator. The creator never has a row here.
type TeamMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"uniqueIndex:idx_team_project_user;not null" json:"projectId"`
	Project   *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	UserID    uint      `gorm:"uniqueIndex:idx_team_project_user;index;not null" json:"userId"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role      string    `gorm:"size:50;default:member" json:"role"`
	JoinedAt  time.Time `gorm:"autoCreateTime" json:"joinedAt"`
}

func (TeamMember) TableName() string { return "team_members" }
